package handlers

import (
	"strings"

	"oficio/internal/app"
	"oficio/internal/handlers/middleware"
	"oficio/internal/logger"
	"oficio/internal/models"
	"oficio/internal/repositories"
	"oficio/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type BookingHandler struct {
	Handler
	authService    *services.AuthService
	bookingService *services.BookingService
	userRepo       repositories.UserRepository
	chatRepo       repositories.ChatRepository
}

type createBookingRequest struct {
	WorkerID    string          `json:"workerId"`
	Amount      decimal.Decimal `json:"amount"`
	ServiceTags []string        `json:"serviceTags"`
	Description string          `json:"description"`
	Address     string          `json:"address"`
	ServiceDate string          `json:"serviceDate"`
}

type chatMessageRequest struct {
	Body string `json:"body"`
}

func NewBookingHandler(app app.App, router fiber.Router) *BookingHandler {
	log := logger.New("handlers").File("booking_handler")
	return &BookingHandler{
		authService:    app.AuthService,
		bookingService: app.BookingService,
		userRepo:       app.Repository.User,
		chatRepo:       app.Repository.Chat,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *BookingHandler) Register() {
	bookings := h.router.Group("/bookings", h.middleware.RequireAuth(h.authService))

	bookings.Post("/", h.createBooking)
	bookings.Get("/:id", h.getBooking)
	bookings.Post("/:id/accept", h.acceptBooking)
	bookings.Post("/:id/refuse", h.refuseBooking)
	bookings.Post("/:id/complete", h.completeBooking)

	bookings.Get("/:id/messages", h.listMessages)
	bookings.Post("/:id/messages", h.sendMessage)
}

func (h *BookingHandler) createBooking(c *fiber.Ctx) error {
	log := h.log.Function("createBooking")

	client := middleware.GetUser(c)
	if client == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	worker, err := h.userRepo.GetByID(c.UserContext(), req.WorkerID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown worker"})
	}
	if !worker.IsWorker {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Recipient does not take bookings"})
	}

	proposal := models.Proposal{
		Amount:      req.Amount,
		ServiceTags: req.ServiceTags,
		Description: req.Description,
		Address:     req.Address,
		ServiceDate: req.ServiceDate,
	}

	contract, err := h.bookingService.InitiateProposal(c.UserContext(), client.Party(), worker.Party(), proposal)
	if err != nil {
		log.Er("failed to initiate proposal", err, "clientID", client.ID, "workerID", req.WorkerID)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"contract": contract})
}

func (h *BookingHandler) getBooking(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	contractID := c.Params("id")

	contract, err := h.bookingService.GetContract(c.UserContext(), contractID)
	if err != nil {
		return errorResponse(c, err)
	}
	if !contract.IsParty(user.ID.String()) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a party to this contract"})
	}

	return c.JSON(fiber.Map{"contract": contract})
}

func (h *BookingHandler) acceptBooking(c *fiber.Ctx) error {
	log := h.log.Function("acceptBooking")

	user := middleware.GetUser(c)
	contractID := c.Params("id")

	contract, err := h.bookingService.AcceptProposal(c.UserContext(), contractID, user.ID.String())
	if err != nil {
		log.Er("failed to accept proposal", err, "contractID", contractID, "userID", user.ID)
		return errorResponse(c, err)
	}

	// A missing contract means the offer was already resolved elsewhere.
	return c.JSON(fiber.Map{"contract": contract})
}

func (h *BookingHandler) refuseBooking(c *fiber.Ctx) error {
	log := h.log.Function("refuseBooking")

	user := middleware.GetUser(c)
	contractID := c.Params("id")

	if err := h.bookingService.RefuseProposal(c.UserContext(), contractID, user.Party()); err != nil {
		log.Er("failed to refuse proposal", err, "contractID", contractID, "userID", user.ID)
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BookingHandler) completeBooking(c *fiber.Ctx) error {
	log := h.log.Function("completeBooking")

	user := middleware.GetUser(c)
	contractID := c.Params("id")

	outcome, contract, err := h.bookingService.SignalCompletion(c.UserContext(), contractID, user.ID.String())
	if err != nil {
		log.Er("failed to signal completion", err, "contractID", contractID, "userID", user.ID)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"outcome":  outcome,
		"contract": contract,
	})
}

func (h *BookingHandler) listMessages(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	contractID := c.Params("id")

	contract, err := h.bookingService.GetContract(c.UserContext(), contractID)
	if err != nil {
		return errorResponse(c, err)
	}
	if !contract.IsParty(user.ID.String()) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a party to this contract"})
	}

	messages, err := h.chatRepo.List(c.UserContext(), contractID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *BookingHandler) sendMessage(c *fiber.Ctx) error {
	log := h.log.Function("sendMessage")

	user := middleware.GetUser(c)
	contractID := c.Params("id")

	contract, err := h.bookingService.GetContract(c.UserContext(), contractID)
	if err != nil {
		return errorResponse(c, err)
	}
	if !contract.IsParty(user.ID.String()) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a party to this contract"})
	}

	var req chatMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Body) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message body is required"})
	}

	message := models.ChatMessage{
		SenderID: user.ID.String(),
		Body:     req.Body,
	}
	id, err := h.chatRepo.Append(c.UserContext(), contractID, message)
	if err != nil {
		log.Er("failed to append chat message", err, "contractID", contractID)
		return errorResponse(c, err)
	}
	message.ID = id

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}
