package services

import (
	"oficio/config"
	"oficio/internal/events"
	"oficio/internal/repositories"
)

type Service struct {
	Auth      *AuthService
	Booking   *BookingService
	Scheduler *SchedulerService
}

func New(config config.Config, repos repositories.Repository, eventBus *events.EventBus) (Service, error) {
	authService := NewAuthService(config, repos.User)
	bookingService := NewBookingService(repos, eventBus)
	schedulerService := NewSchedulerService()

	return Service{
		Auth:      authService,
		Booking:   bookingService,
		Scheduler: schedulerService,
	}, nil
}
