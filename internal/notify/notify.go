// Package notify composes and publishes the best-effort notifications
// described in the component design: place-added, place-updated, user
// registered, and password-reset-requested. Every composer here mirrors
// the four functions of the source's notify module, minus the
// commented-out email feature flag — this module always publishes to
// the message broker and leaves actual delivery to a downstream
// consumer.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"placedir/internal/domain"
	"placedir/pkg/mlog"
	"placedir/pkg/mrabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchange = "placedir.notifications"

// Event routing keys, one per composer below.
const (
	KeyEntryAdded               = "entry.added"
	KeyEntryUpdated             = "entry.updated"
	KeyUserRegistered           = "user.registered"
	KeyUserResetPasswordRequest = "user.reset_password_requested"
)

// Publisher publishes best-effort notifications. Its errors are always
// logged by the publisher itself and never propagated into a flow's result,
// matching the component design's failure semantics for this stage.
type Publisher struct {
	conn   *mrabbitmq.RabbitMQConnection
	logger mlog.Logger
}

// NewPublisher builds a Publisher over an already-configured rabbitmq
// connection.
func NewPublisher(conn *mrabbitmq.RabbitMQConnection, logger mlog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

type entryNotification struct {
	PlaceUID   string   `json:"place_uid"`
	Title      string   `json:"title"`
	Categories []string `json:"categories"`
	Recipients []string `json:"recipients"`
}

// EntryAdded notifies the owners of every bbox subscription containing
// the new place's position.
func (p *Publisher) EntryAdded(ctx context.Context, recipients []string, rev domain.PlaceRevision, categoryNames []string) {
	p.publish(ctx, KeyEntryAdded, entryNotification{
		PlaceUID:   rev.PlaceUID,
		Title:      rev.Title,
		Categories: categoryNames,
		Recipients: recipients,
	})
}

// EntryUpdated notifies the owners of every bbox subscription
// containing the updated place's position.
func (p *Publisher) EntryUpdated(ctx context.Context, recipients []string, rev domain.PlaceRevision, categoryNames []string) {
	p.publish(ctx, KeyEntryUpdated, entryNotification{
		PlaceUID:   rev.PlaceUID,
		Title:      rev.Title,
		Categories: categoryNames,
		Recipients: recipients,
	})
}

type userNotification struct {
	Email string `json:"email"`
	URL   string `json:"url"`
}

// UserRegistered notifies a newly registered user with the
// confirmation URL carrying their encoded EmailNonce token.
func (p *Publisher) UserRegistered(ctx context.Context, user domain.User, confirmURL string) {
	p.publish(ctx, KeyUserRegistered, userNotification{Email: user.Email, URL: confirmURL})
}

// UserResetPasswordRequested notifies a user with the password reset
// URL carrying their encoded EmailNonce token.
func (p *Publisher) UserResetPasswordRequested(ctx context.Context, nonce domain.EmailNonce, resetURL string) {
	p.publish(ctx, KeyUserResetPasswordRequest, userNotification{Email: nonce.Email, URL: resetURL})
}

func (p *Publisher) publish(ctx context.Context, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Errorf("notify: marshal %s: %v", key, err)
		return
	}

	ch, err := p.conn.GetChannel(ctx)
	if err != nil {
		p.logger.Errorf("notify: get channel: %v", err)
		return
	}

	err = ch.Publish(exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.logger.Errorf("notify: publish %s: %v", key, err)
		return
	}

	p.logger.Infof("notify: published %s for key %s", fmt.Sprintf("%d bytes", len(body)), key)
}
