package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User описує учасника каталогу.
// ID doubles as the identity token persisted by the browser; AnonymousID is the
// handle other people may see. Demo users are simulated and never go stale.
type User struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	AnonymousID string    `gorm:"uniqueIndex" json:"anonymous_id"`
	IsOnline    bool      `gorm:"index" json:"is_online"`
	LastSeen    time.Time `gorm:"index" json:"last_seen"`
	IsDemo      bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is still empty.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
