package handlers

import (
	"oficio/internal/app"
	"oficio/internal/handlers/middleware"
	"oficio/internal/logger"
	"oficio/internal/repositories"
	"oficio/internal/services"

	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	Handler
	authService      *services.AuthService
	notificationRepo repositories.NotificationRepository
}

func NewNotificationHandler(app app.App, router fiber.Router) *NotificationHandler {
	log := logger.New("handlers").File("notification_handler")
	return &NotificationHandler{
		authService:      app.AuthService,
		notificationRepo: app.Repository.Notification,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *NotificationHandler) Register() {
	notifications := h.router.Group("/notifications", h.middleware.RequireAuth(h.authService))

	notifications.Get("/", h.list)
	notifications.Post("/:id/read", h.markRead)
	notifications.Delete("/:id", h.dismiss)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	log := h.log.Function("list")

	user := middleware.GetUser(c)

	notifications, err := h.notificationRepo.List(c.UserContext(), user.ID.String())
	if err != nil {
		log.Er("failed to list notifications", err, "userID", user.ID)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	log := h.log.Function("markRead")

	user := middleware.GetUser(c)
	notificationID := c.Params("id")

	if err := h.notificationRepo.MarkRead(c.UserContext(), user.ID.String(), notificationID); err != nil {
		log.Er("failed to mark notification read", err, "userID", user.ID, "notificationID", notificationID)
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) dismiss(c *fiber.Ctx) error {
	log := h.log.Function("dismiss")

	user := middleware.GetUser(c)
	notificationID := c.Params("id")

	if err := h.notificationRepo.Dismiss(c.UserContext(), user.ID.String(), notificationID); err != nil {
		log.Er("failed to dismiss notification", err, "userID", user.ID, "notificationID", notificationID)
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
