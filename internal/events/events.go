// Package events publishes domain events about accounts and coupons.
// Publishing is best effort: a broker outage never fails the request that
// produced the event.
package events

import (
	"context" // Request scoped cancellation
	"time"    // Event timestamps

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Event types, also used as routing keys
const (
	UserSignedUp      = "user.signed_up"
	UserVerified      = "user.verified"
	UserPasswordReset = "user.password_reset"
	CouponCreated     = "coupon.created"
	CouponUsed        = "coupon.used"
	CouponDeleted     = "coupon.deleted"
)

// Event is the JSON message body
type Event struct {
	Type       string         `json:"type"`           // Routing key
	UserID     string         `json:"user_id"`        // Acting user
	OccurredAt time.Time      `json:"occurred_at"`    // UTC timestamp
	Data       map[string]any `json:"data,omitempty"` // Event specific fields
}

// New builds an event stamped with the current time
func New(eventType, userID string, data map[string]any) Event {
	return Event{Type: eventType, UserID: userID, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher sends events to a broker
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Emit publishes and logs failures instead of returning them
func Emit(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logrus.WithFields(logrus.Fields{
			"type":    ev.Type,     // Event type
			"user_id": ev.UserID,   // Acting user
			"error":   err.Error(), // Error message
		}).Warn("Event publish failed")
	}
}
