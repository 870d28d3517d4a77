package repositories

import (
	"oficio/internal/database"
	"oficio/internal/events"
	"oficio/internal/store"
)

type Repository struct {
	User         UserRepository
	Contract     ContractRepository
	Agenda       AgendaRepository
	Notification NotificationRepository
	Chat         ChatRepository
}

func New(db database.DB, recordStore store.Store, eventBus *events.EventBus) Repository {
	return Repository{
		User:         NewUserRepository(db), // User repo needs cache for caching
		Contract:     NewContractRepository(recordStore),
		Agenda:       NewAgendaRepository(recordStore),
		Notification: NewNotificationRepository(recordStore, eventBus),
		Chat:         NewChatRepository(recordStore, eventBus),
	}
}
