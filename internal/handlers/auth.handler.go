package handlers

import (
	"errors"

	"oficio/internal/app"
	"oficio/internal/handlers/middleware"
	"oficio/internal/logger"
	"oficio/internal/models"
	"oficio/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Handler
	authService *services.AuthService
}

func NewAuthHandler(app app.App, router fiber.Router) *AuthHandler {
	log := logger.New("handlers").File("auth_handler")
	return &AuthHandler{
		authService: app.AuthService,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *AuthHandler) Register() {
	auth := h.router.Group("/auth")

	// Public endpoints
	auth.Post("/register", h.register)
	auth.Post("/login", h.login)

	// Protected endpoints
	protected := auth.Group("/", h.middleware.RequireAuth(h.authService))
	protected.Get("/me", h.getCurrentUser)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	log := h.log.Function("register")

	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, token, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return errorResponse(c, err)
		}
		log.Er("registration failed", err, "email", req.Email)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Account could not be created"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  user.ToProfile(),
		"token": token,
	})
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	log := h.log.Function("login")

	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, token, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		log.Info("login rejected", "email", req.Email)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	return c.JSON(fiber.Map{
		"user":  user.ToProfile(),
		"token": token,
	})
}

func (h *AuthHandler) getCurrentUser(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	return c.JSON(fiber.Map{"user": user.ToProfile()})
}
