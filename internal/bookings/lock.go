package bookings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/availability"
)

// SlotLocker serialises booking writes for one (vet, date) across replicas.
type SlotLocker interface {
	Acquire(ctx context.Context, vetID string, date availability.Date) (release func(), err error)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlotLocker holds a SET NX PX token per slot key.
type RedisSlotLocker struct {
	client     *redis.Client
	ttl        time.Duration
	wait       time.Duration
	retryEvery time.Duration
}

// NewRedisSlotLocker returns a locker whose keys expire after ttl. Acquire
// waits up to ttl for a held key before reporting a conflict.
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) *RedisSlotLocker {
	if client == nil {
		panic("bookings: redis client required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisSlotLocker{client: client, ttl: ttl, wait: ttl, retryEvery: 25 * time.Millisecond}
}

func (l *RedisSlotLocker) Acquire(ctx context.Context, vetID string, date availability.Date) (func(), error) {
	key := "vetcare:lock:" + slotKey(vetID, date)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("bookings: acquire slot lock: %w", err)
		}
		if ok {
			return func() {
				// Release must run even when the request context is gone.
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, apperr.Conflict("another booking for vet %s on %s is in progress", vetID, date)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryEvery):
		}
	}
}

// LocalSlotLocker is the in-process fallback when Redis is not configured.
// A slot's entry lives only while someone holds or waits for it.
type LocalSlotLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

type localSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalSlotLocker() *LocalSlotLocker {
	return &LocalSlotLocker{slots: make(map[string]*localSlot)}
}

func (l *LocalSlotLocker) Acquire(ctx context.Context, vetID string, date availability.Date) (func(), error) {
	key := slotKey(vetID, date)
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.leave(key, slot)
			})
		}, nil
	case <-ctx.Done():
		l.leave(key, slot)
		return nil, ctx.Err()
	}
}

func (l *LocalSlotLocker) leave(key string, slot *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 && l.slots[key] == slot {
		delete(l.slots, key)
	}
}
