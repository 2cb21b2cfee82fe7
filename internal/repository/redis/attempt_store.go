package redis

import (
	"context"
	"fmt"
	"time"

	"bestwishes/internal/domain"

	"github.com/redis/go-redis/v9"
)

// attemptTTL bounds how long a submitted payment blocks duplicates.
// Long enough to cover a processor round trip, short enough that a
// failed charge does not lock the share out for long.
const attemptTTL = 2 * time.Minute

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type paymentAttemptStore struct {
	client *redis.Client
}

// NewPaymentAttemptStore returns a PaymentAttemptStore backed by Redis.
func NewPaymentAttemptStore(client *redis.Client) domain.PaymentAttemptStore {
	return &paymentAttemptStore{client: client}
}

// BeginAttempt reserves the payment link for one submission. It reports
// whether this call was the first to claim the link within the TTL window.
func (s *paymentAttemptStore) BeginAttempt(ctx context.Context, paymentLink, paymentIntentID string) (bool, error) {
	key := fmt.Sprintf("payment_attempt:%s", paymentLink)
	first, err := s.client.SetNX(ctx, key, paymentIntentID, attemptTTL).Result()
	if err != nil {
		return false, fmt.Errorf("set payment attempt in redis: %w", err)
	}
	return first, nil
}
