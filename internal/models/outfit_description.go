package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Location is an approximate position attached to a description.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OutfitDescription is a one-sided account of someone the submitter noticed.
// It is immutable once stored.
type OutfitDescription struct {
	ID           string `gorm:"primaryKey" json:"id"`
	UserID       string `gorm:"not null;index:idx_desc_pair" json:"user_id"`
	TargetUserID string `gorm:"not null;index:idx_desc_pair" json:"target_user_id"`

	// Tag sets are stored in Postgres array literal form ({a,b}) so the same
	// column works on every supported backend.
	Clothing    pq.StringArray `gorm:"type:text" json:"clothing"`
	Accessories pq.StringArray `gorm:"type:text" json:"accessories"`
	Activity    pq.StringArray `gorm:"type:text" json:"activity"`

	Location  datatypes.JSONType[Location] `json:"location"`
	CreatedAt time.Time                    `gorm:"index" json:"timestamp"`
}

// BeforeCreate assigns a UUID when the ID is still empty.
func (d *OutfitDescription) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return
}

// Complements reports whether other was written by this description's target
// about this description's author.
func (d *OutfitDescription) Complements(other *OutfitDescription) bool {
	return other.UserID == d.TargetUserID && other.TargetUserID == d.UserID
}

// NormalizeTags turns free-form tags into a set: trimmed, lower-cased,
// de-duplicated and sorted. Empty entries are dropped. The result is never nil.
func NormalizeTags(tags []string) pq.StringArray {
	seen := make(map[string]struct{}, len(tags))
	out := pq.StringArray{}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
