package chathub_test

import (
	"context"
	"fidha/backend/internal/chathub"
	"fidha/backend/internal/jobs"
	"fidha/backend/internal/localization"
	"fidha/backend/internal/models"
	"fidha/backend/internal/storage"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store         *storage.MemoryStore
	clock         *clockwork.FakeClock
	sched         *jobs.ManualScheduler
	notifier      *chathub.LocalNotifier
	matcher       *chathub.MatcherService
	chats         *chathub.ChatService
	conversations *chathub.ConversationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc := localization.Default()
	f := &fixture{
		store:    storage.NewMemoryStore(),
		clock:    clockwork.NewFakeClockAt(start),
		sched:    jobs.NewManualScheduler(),
		notifier: chathub.NewLocalNotifier(),
	}
	f.matcher = chathub.NewMatcherService(f.store, f.clock, loc, "en")
	f.chats = chathub.NewChatService(f.store, f.notifier, f.sched, f.clock, loc, "en")
	f.conversations = chathub.NewConversationService(f.store, loc, "en")

	for _, u := range []models.User{
		{ID: "userA", Name: "Alex", IsOnline: true, LastSeen: start},
		{ID: "userB", Name: "Sarah", IsOnline: true, LastSeen: start},
		{ID: "userC", Name: "Emma", IsOnline: false, LastSeen: start},
	} {
		u := u
		require.NoError(t, f.store.SaveUser(context.Background(), &u))
	}
	return f
}

// matchPair makes a and b describe each other and returns the resulting match.
func (f *fixture) matchPair(t *testing.T, a, b string) *models.Match {
	t.Helper()
	ctx := context.Background()
	_, err := f.matcher.Submit(ctx, a, chathub.SubmitRequest{TargetUserID: b, Clothing: []string{"jeans"}})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	res, err := f.matcher.Submit(ctx, b, chathub.SubmitRequest{TargetUserID: a, Clothing: []string{"dress"}})
	require.NoError(t, err)
	require.True(t, res.Matched)
	return res.Match
}
