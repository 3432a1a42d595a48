package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// publish never fails the caller; a lost event is logged and the request goes on.
func publish(ctx context.Context, p EventPublisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("publish_event_error", "topic", topic, "type", event["type"], "error", err)
	}
}

type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

const (
	refCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	refCodeLength   = 20
)

// NewRefCode returns a random 20 character [a-z0-9] order reference.
func NewRefCode() (string, error) {
	const limit = 252 // largest multiple of 36 below 256
	out := make([]byte, 0, refCodeLength)
	buf := make([]byte, refCodeLength*2)
	for len(out) < refCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("ref code: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, refCodeAlphabet[int(b)%len(refCodeAlphabet)])
			if len(out) == refCodeLength {
				break
			}
		}
	}
	return string(out), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// activeOrCreate returns the locked active order, creating it when the user has none.
func activeOrCreate(ctx context.Context, tx *repo.GormRepo, userID uuid.UUID, now time.Time) (*models.Order, error) {
	order, err := tx.ActiveOrder(ctx, userID, true)
	if err == nil {
		return order, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	order = &models.Order{UserID: userID, OrderDate: now}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func findLine(order *models.Order, itemID uint) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].ItemID == itemID {
			return &order.Items[i]
		}
	}
	return nil
}
