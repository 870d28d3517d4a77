package handlers

import (
	"oficio/internal/app"
	"oficio/internal/handlers/middleware"
	"oficio/internal/logger"
	"oficio/internal/repositories"
	"oficio/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AgendaHandler struct {
	Handler
	authService *services.AuthService
	agendaRepo  repositories.AgendaRepository
}

func NewAgendaHandler(app app.App, router fiber.Router) *AgendaHandler {
	log := logger.New("handlers").File("agenda_handler")
	return &AgendaHandler{
		authService: app.AuthService,
		agendaRepo:  app.Repository.Agenda,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *AgendaHandler) Register() {
	agenda := h.router.Group("/agenda", h.middleware.RequireAuth(h.authService))

	// Any client may look at a worker's busy dates while composing an offer.
	agenda.Get("/:workerId/busy", h.getBusyDates)

	// The full agenda is the worker's own.
	agenda.Get("/", h.listOwnSlots)
}

func (h *AgendaHandler) getBusyDates(c *fiber.Ctx) error {
	log := h.log.Function("getBusyDates")

	workerID := c.Params("workerId")

	busy, err := h.agendaRepo.GetBusyDates(c.UserContext(), workerID)
	if err != nil {
		log.Er("failed to load busy dates", err, "workerID", workerID)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"busyDates": busy})
}

func (h *AgendaHandler) listOwnSlots(c *fiber.Ctx) error {
	log := h.log.Function("listOwnSlots")

	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	entries, err := h.agendaRepo.ListSlots(c.UserContext(), user.ID.String())
	if err != nil {
		log.Er("failed to list agenda", err, "workerID", user.ID)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"slots": entries})
}
