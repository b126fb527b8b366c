package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/revzworks/soulbuddy/internal/repository"
	"gorm.io/gorm"
)

// Entitlements answers whether a user is a current subscriber. Receipt
// verification lives upstream; this only reads the resulting state.
type Entitlements interface {
	IsSubscriber(ctx context.Context, userID uuid.UUID) (bool, error)
}

// SubscriptionEntitlements reads the subscriptions table with a short Redis
// cache in front. A nil Redis client disables caching.
type SubscriptionEntitlements struct {
	users *repository.UserRepository
	rdb   *redis.Client
	ttl   time.Duration
}

func NewSubscriptionEntitlements(users *repository.UserRepository, rdb *redis.Client) *SubscriptionEntitlements {
	return &SubscriptionEntitlements{
		users: users,
		rdb:   rdb,
		ttl:   5 * time.Minute,
	}
}

func (e *SubscriptionEntitlements) IsSubscriber(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := "entitlement:" + userID.String()

	if e.rdb != nil {
		if cached, err := e.rdb.Get(ctx, key).Result(); err == nil {
			return cached == "1", nil
		}
	}

	subscribed := false
	sub, err := e.users.FindSubscription(userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no subscription row: not a subscriber
	case err != nil:
		return false, err
	default:
		subscribed = sub.ExpiresAt.After(time.Now().UTC())
	}

	if e.rdb != nil {
		value := "0"
		if subscribed {
			value = "1"
		}
		_ = e.rdb.Set(ctx, key, value, e.ttl).Err()
	}
	return subscribed, nil
}
