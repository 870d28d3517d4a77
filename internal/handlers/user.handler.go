package handlers

import (
	"oficio/internal/app"
	"oficio/internal/handlers/middleware"
	"oficio/internal/logger"
	"oficio/internal/models"
	"oficio/internal/repositories"
	"oficio/internal/services"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	Handler
	authService *services.AuthService
	userRepo    repositories.UserRepository
}

func NewUserHandler(app app.App, router fiber.Router) *UserHandler {
	log := logger.New("handlers").File("user_handler")
	return &UserHandler{
		authService: app.AuthService,
		userRepo:    app.Repository.User,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *UserHandler) Register() {
	users := h.router.Group("/users", h.middleware.RequireAuth(h.authService))
	users.Get("/me", h.getCurrentUser)

	workers := h.router.Group("/workers", h.middleware.RequireAuth(h.authService))
	workers.Get("/", h.searchWorkers)
}

func (h *UserHandler) getCurrentUser(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	return c.JSON(fiber.Map{"user": user.ToProfile()})
}

// searchWorkers lists workers advertising a service tag.
func (h *UserHandler) searchWorkers(c *fiber.Ctx) error {
	log := h.log.Function("searchWorkers")

	tag := c.Query("tag")
	if tag == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tag query parameter is required"})
	}

	workers, err := h.userRepo.SearchWorkersByTag(c.UserContext(), tag)
	if err != nil {
		log.Er("worker search failed", err, "tag", tag)
		return errorResponse(c, err)
	}

	profiles := make([]models.UserProfile, 0, len(workers))
	for i := range workers {
		profiles = append(profiles, workers[i].ToProfile())
	}

	return c.JSON(fiber.Map{"workers": profiles})
}
