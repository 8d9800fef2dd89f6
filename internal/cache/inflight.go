package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// InFlightGuard is the fast-path duplicate-initiation check. Acquire claims
// an order for one payment attempt; the claim expires with the payment
// ceiling so an abandoned attempt does not block the order forever. The
// database transition guard remains authoritative; this guard rejects
// obvious double-submits before any provider call.
type InFlightGuard interface {
	// Acquire claims the order for a payment attempt. Returns false if a
	// claim is already held.
	Acquire(ctx context.Context, orderID int, ttl time.Duration) (bool, error)
	// Release drops the claim early, e.g. when initiation fails before the
	// provider was contacted.
	Release(ctx context.Context, orderID int) error
}

// RedisInFlightGuard implements InFlightGuard on Redis using SET NX with a
// TTL, so the claim is atomic across server instances.
type RedisInFlightGuard struct {
	client *redis.Client
}

// NewRedisInFlightGuard creates a Redis-backed in-flight guard
func NewRedisInFlightGuard(client *redis.Client) *RedisInFlightGuard {
	return &RedisInFlightGuard{client: client}
}

func inflightKey(orderID int) string {
	return fmt.Sprintf("order:%d:payment_inflight", orderID)
}

func (g *RedisInFlightGuard) Acquire(ctx context.Context, orderID int, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, inflightKey(orderID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire in-flight claim: %w", err)
	}
	return ok, nil
}

func (g *RedisInFlightGuard) Release(ctx context.Context, orderID int) error {
	if err := g.client.Del(ctx, inflightKey(orderID)).Err(); err != nil {
		return fmt.Errorf("failed to release in-flight claim: %w", err)
	}
	return nil
}

// MemoryInFlightGuard is the single-process fallback used when no Redis
// address is configured, and in tests.
type MemoryInFlightGuard struct {
	mu     sync.Mutex
	claims map[int]time.Time
}

// NewMemoryInFlightGuard creates an in-memory in-flight guard
func NewMemoryInFlightGuard() *MemoryInFlightGuard {
	return &MemoryInFlightGuard{claims: make(map[int]time.Time)}
}

func (g *MemoryInFlightGuard) Acquire(_ context.Context, orderID int, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if expiry, held := g.claims[orderID]; held && time.Now().Before(expiry) {
		return false, nil
	}
	g.claims[orderID] = time.Now().Add(ttl)
	return true, nil
}

func (g *MemoryInFlightGuard) Release(_ context.Context, orderID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, orderID)
	return nil
}
