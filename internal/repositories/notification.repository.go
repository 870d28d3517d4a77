package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"oficio/internal/events"
	"oficio/internal/logger"
	"oficio/internal/models"
	"oficio/internal/store"
)

type NotificationRepository interface {
	Send(ctx context.Context, recipientID string, notification models.Notification) (string, error)
	List(ctx context.Context, recipientID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
	Dismiss(ctx context.Context, recipientID, notificationID string) error
	DismissByContract(ctx context.Context, recipientID, contractID string) error
}

type notificationRepository struct {
	store    store.Store
	eventBus *events.EventBus
	log      logger.Logger
}

func NewNotificationRepository(recordStore store.Store, eventBus *events.EventBus) NotificationRepository {
	return &notificationRepository{
		store:    recordStore,
		eventBus: eventBus,
		log:      logger.New("notificationRepository"),
	}
}

func (r *notificationRepository) Send(ctx context.Context, recipientID string, notification models.Notification) (string, error) {
	log := r.log.Function("Send")

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	id, err := r.store.Push(ctx, store.NotificationsPath(recipientID), notification)
	if err != nil {
		return "", log.Err("failed to push notification", err, "recipientID", recipientID, "kind", string(notification.Kind))
	}
	notification.ID = id

	r.publish(events.NOTIFICATION_PUSHED, recipientID, notification)

	return id, nil
}

// List returns the recipient's notifications newest first.
func (r *notificationRepository) List(ctx context.Context, recipientID string) ([]models.Notification, error) {
	log := r.log.Function("List")

	children, err := r.store.List(ctx, store.NotificationsPath(recipientID))
	if err != nil {
		return nil, log.Err("failed to list notifications", err, "recipientID", recipientID)
	}

	notifications := make([]models.Notification, 0, len(children))
	for id, raw := range children {
		var notification models.Notification
		if err := json.Unmarshal(raw, &notification); err != nil {
			log.Er("skipping malformed notification", err, "recipientID", recipientID, "notificationID", id)
			continue
		}
		notification.ID = id
		notifications = append(notifications, notification)
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	return notifications, nil
}

// MarkRead flags the notification as read. A notification the recipient has
// already dismissed is left alone rather than resurrected.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	log := r.log.Function("MarkRead")

	path := store.NotificationPath(recipientID, notificationID)

	var existing models.Notification
	err := r.store.Get(ctx, path, &existing)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return log.Err("failed to read notification", err, "recipientID", recipientID, "notificationID", notificationID)
	}

	if err := r.store.Update(ctx, path, map[string]any{"read": true}); err != nil {
		return log.Err("failed to mark notification read", err, "recipientID", recipientID, "notificationID", notificationID)
	}

	return nil
}

// Dismiss deletes the notification. Dismissing one that is already gone is a
// success.
func (r *notificationRepository) Dismiss(ctx context.Context, recipientID, notificationID string) error {
	log := r.log.Function("Dismiss")

	if err := r.store.Remove(ctx, store.NotificationPath(recipientID, notificationID)); err != nil {
		return log.Err("failed to dismiss notification", err, "recipientID", recipientID, "notificationID", notificationID)
	}

	r.publish(events.NOTIFICATION_REMOVED, recipientID, map[string]string{"id": notificationID})

	return nil
}

// DismissByContract removes every notification the recipient holds for the
// given contract. Used when a proposal is resolved so stale offers do not
// linger in the inbox.
func (r *notificationRepository) DismissByContract(ctx context.Context, recipientID, contractID string) error {
	log := r.log.Function("DismissByContract")

	notifications, err := r.List(ctx, recipientID)
	if err != nil {
		return err
	}

	for _, notification := range notifications {
		if notification.RelatedContractID != contractID {
			continue
		}
		if err := r.Dismiss(ctx, recipientID, notification.ID); err != nil {
			return log.Err("failed to dismiss contract notification", err,
				"recipientID", recipientID, "contractID", contractID, "notificationID", notification.ID)
		}
	}

	return nil
}

func (r *notificationRepository) publish(eventType events.MessageType, recipientID string, data any) {
	if r.eventBus == nil {
		return
	}
	if err := r.eventBus.PublishBookingEvent(eventType, []string{recipientID}, data); err != nil {
		r.log.Er("failed to publish notification event", err, "eventType", string(eventType), "recipientID", recipientID)
	}
}
