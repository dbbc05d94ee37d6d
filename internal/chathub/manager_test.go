package chathub_test

import (
	"context"
	"fidha/backend/internal/chathub"
	"fidha/backend/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, f *fixture) *chathub.ManagerService {
	t.Helper()
	hub := chathub.NewManagerService(f.chats, f.notifier)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

func receive(t *testing.T, client *MockClient) models.ChatSnapshot {
	t.Helper()
	select {
	case snap := <-client.RecvChannel:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("client received no snapshot")
		return models.ChatSnapshot{}
	}
}

func TestManager_RegisterSendsSnapshot(t *testing.T) {
	// Arrange
	f := newFixture(t)
	match := f.matchPair(t, "userA", "userB")
	hub := startHub(t, f)
	client := newMockClient("userA", match.ChatID, 10)

	// Act
	hub.RegisterCh <- client

	// Assert
	snap := receive(t, client)
	assert.Equal(t, match.ChatID, snap.ChatID)
	require.Len(t, snap.Messages, 1)
	assert.True(t, snap.Messages[0].IsSystem())
}

func TestManager_BroadcastsFullListOnChange(t *testing.T) {
	f := newFixture(t)
	match := f.matchPair(t, "userA", "userB")
	hub := startHub(t, f)
	clientA := newMockClient("userA", match.ChatID, 10)
	clientB := newMockClient("userB", match.ChatID, 10)
	hub.RegisterCh <- clientA
	hub.RegisterCh <- clientB
	receive(t, clientA)
	receive(t, clientB)

	// A message arriving over the socket goes through the chat store.
	hub.IncomingCh <- models.SendRequest{ChatID: match.ChatID, SenderID: "userA", Content: "hi"}

	for _, c := range []*MockClient{clientA, clientB} {
		snap := receive(t, c)
		require.Len(t, snap.Messages, 2)
		assert.Equal(t, "hi", snap.Messages[1].Content)
	}

	// The simulated reply is pushed as well, with the whole history.
	assert.Eventually(t, func() bool { return f.chats.PendingReplies(match.ChatID) == 1 }, time.Second, 10*time.Millisecond)
	f.sched.RunPending()
	snap := receive(t, clientA)
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "userB", snap.Messages[2].SenderID)
}

func TestManager_OtherChatsAreNotNotified(t *testing.T) {
	f := newFixture(t)
	withB := f.matchPair(t, "userA", "userB")
	withC := f.matchPair(t, "userA", "userC")
	hub := startHub(t, f)
	watcher := newMockClient("userC", withC.ChatID, 10)
	hub.RegisterCh <- watcher
	receive(t, watcher)

	_, err := f.chats.Send(context.Background(), withB.ChatID, "userA", "hi")
	require.NoError(t, err)

	select {
	case snap := <-watcher.RecvChannel:
		t.Fatalf("unexpected snapshot for chat %s", snap.ChatID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestManager_UnregisterClosesClient(t *testing.T) {
	f := newFixture(t)
	match := f.matchPair(t, "userA", "userB")
	hub := startHub(t, f)
	client := newMockClient("userA", match.ChatID, 10)
	hub.RegisterCh <- client
	receive(t, client)

	hub.UnregisterCh <- client
	assert.Eventually(t, client.IsClosed, time.Second, 10*time.Millisecond)
}

func TestManager_DropsSlowClient(t *testing.T) {
	f := newFixture(t)
	match := f.matchPair(t, "userA", "userB")
	hub := startHub(t, f)

	// No buffer and nobody reading: the first snapshot cannot be delivered.
	slow := newMockClient("userA", match.ChatID, 0)
	hub.RegisterCh <- slow

	assert.Eventually(t, slow.IsClosed, time.Second, 10*time.Millisecond)
}

func TestManager_ShutdownClosesClients(t *testing.T) {
	f := newFixture(t)
	match := f.matchPair(t, "userA", "userB")
	hub := chathub.NewManagerService(f.chats, f.notifier)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := newMockClient("userA", match.ChatID, 10)
	hub.RegisterCh <- client
	receive(t, client)

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	assert.True(t, client.IsClosed())
}
