package repositories

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"oficio/internal/events"
	"oficio/internal/logger"
	"oficio/internal/models"
	"oficio/internal/store"
)

type ChatRepository interface {
	Append(ctx context.Context, contractID string, message models.ChatMessage) (string, error)
	List(ctx context.Context, contractID string) ([]models.ChatMessage, error)
}

type chatRepository struct {
	store    store.Store
	eventBus *events.EventBus
	log      logger.Logger
}

func NewChatRepository(recordStore store.Store, eventBus *events.EventBus) ChatRepository {
	return &chatRepository{
		store:    recordStore,
		eventBus: eventBus,
		log:      logger.New("chatRepository"),
	}
}

func (r *chatRepository) Append(ctx context.Context, contractID string, message models.ChatMessage) (string, error) {
	log := r.log.Function("Append")

	if message.SentAt.IsZero() {
		message.SentAt = time.Now().UTC()
	}

	id, err := r.store.Push(ctx, store.ChatMessagesPath(contractID), message)
	if err != nil {
		return "", log.Err("failed to append chat message", err, "contractID", contractID)
	}
	message.ID = id

	r.notifyParties(ctx, contractID, message)

	return id, nil
}

// List returns the contract's conversation oldest first.
func (r *chatRepository) List(ctx context.Context, contractID string) ([]models.ChatMessage, error) {
	log := r.log.Function("List")

	children, err := r.store.List(ctx, store.ChatMessagesPath(contractID))
	if err != nil {
		return nil, log.Err("failed to list chat messages", err, "contractID", contractID)
	}

	messages := make([]models.ChatMessage, 0, len(children))
	for id, raw := range children {
		var message models.ChatMessage
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Er("skipping malformed chat message", err, "contractID", contractID, "messageID", id)
			continue
		}
		message.ID = id
		messages = append(messages, message)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})

	return messages, nil
}

// notifyParties fans the message out to both contract parties over the event
// bus. A contract that has since been deleted just skips the live update; the
// message itself is already persisted.
func (r *chatRepository) notifyParties(ctx context.Context, contractID string, message models.ChatMessage) {
	if r.eventBus == nil {
		return
	}

	var contract models.Contract
	if err := r.store.Get(ctx, store.ContractPath(contractID), &contract); err != nil {
		return
	}

	payload := map[string]any{"contractId": contractID, "message": message}
	userIDs := []string{contract.ClientID, contract.WorkerID}
	if err := r.eventBus.PublishBookingEvent(events.CHAT_MESSAGE, userIDs, payload); err != nil {
		r.log.Er("failed to publish chat event", err, "contractID", contractID)
	}
}
