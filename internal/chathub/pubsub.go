package chathub

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis-канали для сповіщень про зміни.
const (
	// ChatChangesChannel carries IDs of chats that got a new message.
	ChatChangesChannel = "chat:changes"
	// PresenceChannel carries IDs of users whose online flag changed.
	PresenceChannel = "presence:changes"
)

// Notifier fans out "this changed" events. Payloads are IDs only; subscribers
// reload the data themselves.
type Notifier interface {
	Publish(ctx context.Context, id string) error
	// Subscribe returns a channel of changed chat IDs that is closed when ctx
	// is done.
	Subscribe(ctx context.Context) (<-chan string, error)
}

// RedisNotifier розсилає події між інстансами сервера через Redis Pub/Sub.
type RedisNotifier struct {
	Redis   *redis.Client
	Channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{Redis: client, Channel: channel}
}

// Publish публікує ID у канал.
func (r *RedisNotifier) Publish(ctx context.Context, id string) error {
	return r.Redis.Publish(ctx, r.Channel, id).Err()
}

// Subscribe підписується на канал і пересилає payload у повернений канал.
func (r *RedisNotifier) Subscribe(ctx context.Context) (<-chan string, error) {
	pubsub := r.Redis.Subscribe(ctx, r.Channel)
	// Чекаємо підтвердження підписки, щоб не пропустити жодної публікації.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// LocalNotifier delivers change events inside one process.
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[chan string]struct{})}
}

func (l *LocalNotifier) Publish(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- id:
		default:
			log.Printf("WARNING: change subscriber is full, dropping event for %q", id)
		}
	}
	return nil
}

func (l *LocalNotifier) Subscribe(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 64)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.subs, ch)
		close(ch)
		l.mu.Unlock()
	}()
	return ch, nil
}
