// Package directory knows every user, who is online, and who the current
// browser session belongs to.
package directory

import (
	"context"
	"errors"
	"fidha/backend/internal/config"
	"fidha/backend/internal/identity"
	"fidha/backend/internal/models"
	"fidha/backend/internal/storage"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Options tunes the simulated discovery.
type Options struct {
	ScanDelayMin  time.Duration
	ScanDelayMax  time.Duration
	NearbyLimit   int
	PresenceTTL   time.Duration
	// TouchInterval throttles how often activity refreshes LastSeen.
	TouchInterval time.Duration
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		ScanDelayMin:  config.DefaultScanDelayMin,
		ScanDelayMax:  config.DefaultScanDelayMax,
		NearbyLimit:   config.DefaultNearbyLimit,
		PresenceTTL:   config.DefaultPresenceTTL,
		TouchInterval: config.DefaultPresenceTouchInterval,
	}
}

// OptionsFromConfig picks the directory settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ScanDelayMin:  cfg.ScanDelayMin,
		ScanDelayMax:  cfg.ScanDelayMax,
		NearbyLimit:   cfg.NearbyLimit,
		PresenceTTL:   cfg.PresenceTTL,
		TouchInterval: config.DefaultPresenceTouchInterval,
	}
}

// Publisher announces that a user's presence changed. The payload is the user
// ID, or "" when many users changed at once.
type Publisher interface {
	Publish(ctx context.Context, id string) error
}

type Service struct {
	Storage  storage.Storage
	Clock    clockwork.Clock
	Options  Options
	// Presence is optional; nil disables presence notifications.
	Presence Publisher
}

func NewService(s storage.Storage, clock clockwork.Clock, opts Options) *Service {
	return &Service{Storage: s, Clock: clock, Options: opts}
}

// GetUser returns a known user. Unlike GetOrCreateCurrentUser it never mints
// one.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.Storage.GetUserByID(ctx, id)
}

// GetOrCreateCurrentUser returns the user named by the stored identity token,
// minting and persisting a new one when the token is absent or stale.
func (s *Service) GetOrCreateCurrentUser(ctx context.Context, tokens identity.TokenStore) (*models.User, error) {
	id, ok, err := tokens.Get(identity.UserIDKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity token: %w", err)
	}
	if ok {
		user, err := s.Storage.GetUserByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		log.Printf("WARNING: identity token names unknown user %s, issuing a new one", id)
	}

	now := s.Clock.Now().UTC()
	user := &models.User{
		ID:          uuid.New().String(),
		Name:        config.DisplayNames[rand.IntN(len(config.DisplayNames))],
		AnonymousID: "anon_" + uuid.New().String()[:8],
		IsOnline:    true,
		LastSeen:    now,
		CreatedAt:   now,
	}
	if err := s.Storage.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save new user: %w", err)
	}
	if err := tokens.Set(identity.UserIDKey, user.ID); err != nil {
		return nil, fmt.Errorf("failed to persist identity token: %w", err)
	}
	log.Printf("INFO: New user %s (%s) created", user.ID, user.Name)
	s.publish(ctx, user.ID)
	return user, nil
}

// Initialize resolves the current user and marks them online.
func (s *Service) Initialize(ctx context.Context, tokens identity.TokenStore) (*models.User, error) {
	user, err := s.GetOrCreateCurrentUser(ctx, tokens)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()
	if err := s.Storage.SetUserPresence(ctx, user.ID, true, now); err != nil {
		return nil, fmt.Errorf("failed to mark user online: %w", err)
	}
	wasOnline := user.IsOnline
	user.IsOnline = true
	user.LastSeen = now
	if !wasOnline {
		s.publish(ctx, user.ID)
	}
	return user, nil
}

// Touch records activity by user. Any activity counts as presence, so an
// offline user comes back online. LastSeen is written at most once per
// TouchInterval.
func (s *Service) Touch(ctx context.Context, user *models.User) error {
	now := s.Clock.Now().UTC()
	if user.IsOnline && now.Sub(user.LastSeen) < s.Options.TouchInterval {
		return nil
	}
	if err := s.Storage.SetUserPresence(ctx, user.ID, true, now); err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}
	wasOnline := user.IsOnline
	user.IsOnline = true
	user.LastSeen = now
	if !wasOnline {
		s.publish(ctx, user.ID)
	}
	return nil
}

// Cleanup marks the user offline.
func (s *Service) Cleanup(ctx context.Context, userID string) error {
	if err := s.Storage.SetUserPresence(ctx, userID, false, s.Clock.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark user offline: %w", err)
	}
	s.publish(ctx, userID)
	return nil
}

// OnlineUsers returns every online user, most recently seen first, without
// the scan delay.
func (s *Service) OnlineUsers(ctx context.Context) ([]models.User, error) {
	return s.Storage.ListOnlineUsers(ctx, "", 0)
}

func (s *Service) publish(ctx context.Context, id string) {
	if s.Presence == nil {
		return
	}
	if err := s.Presence.Publish(ctx, id); err != nil {
		log.Printf("WARNING: Failed to publish presence change for %q: %v", id, err)
	}
}

// ListNearbyUsers simulates a proximity scan: after a random delay it returns
// the online users other than current.
func (s *Service) ListNearbyUsers(ctx context.Context, current string) ([]models.User, error) {
	if d := s.scanDelay(); d > 0 {
		select {
		case <-s.Clock.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Storage.ListOnlineUsers(ctx, current, s.Options.NearbyLimit)
}

func (s *Service) scanDelay() time.Duration {
	lo, hi := s.Options.ScanDelayMin, s.Options.ScanDelayMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

// SweepPresence marks users offline whose last activity is older than the
// presence TTL.
func (s *Service) SweepPresence(ctx context.Context) (int64, error) {
	if s.Options.PresenceTTL <= 0 {
		return 0, nil
	}
	cutoff := s.Clock.Now().UTC().Add(-s.Options.PresenceTTL)
	n, err := s.Storage.MarkStaleUsersOffline(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep presence: %w", err)
	}
	if n > 0 {
		log.Printf("INFO: Presence sweep marked %d user(s) offline", n)
		s.publish(ctx, "")
	}
	return n, nil
}

// SeedDemoUsers inserts the demo directory. Users that already exist are left
// untouched. Seeded users are flagged as demo users, so the presence sweep
// leaves them alone.
func (s *Service) SeedDemoUsers(ctx context.Context, seed []config.SeedUser) (int, error) {
	now := s.Clock.Now().UTC()
	created := 0
	for _, su := range seed {
		_, err := s.Storage.GetUserByID(ctx, su.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return created, err
		}
		anonID := su.AnonymousID
		if anonID == "" {
			anonID = "anon_" + su.ID
		}
		user := &models.User{
			ID:          su.ID,
			Name:        su.Name,
			AnonymousID: anonID,
			IsOnline:    su.Online,
			IsDemo:      true,
			LastSeen:    now.Add(-su.LastSeenAgo),
			CreatedAt:   now,
		}
		if err := s.Storage.SaveUser(ctx, user); err != nil {
			return created, fmt.Errorf("failed to seed user %s: %w", su.ID, err)
		}
		created++
	}
	if created > 0 {
		s.publish(ctx, "")
	}
	return created, nil
}
