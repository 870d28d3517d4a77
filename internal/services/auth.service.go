package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"oficio/config"
	"oficio/internal/logger"
	"oficio/internal/models"
	"oficio/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService struct {
	users     repositories.UserRepository
	jwtSecret []byte
	expiry    time.Duration
	log       logger.Logger
}

func NewAuthService(config config.Config, users repositories.UserRepository) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(config.JWTSecret),
		expiry:    time.Duration(config.JWTExpiryHours) * time.Hour,
		log:       logger.New("authService"),
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, string, error) {
	log := s.log.Function("Register")

	if err := validateRegistration(req); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", log.Err("failed to hash password", err)
	}

	tags, err := json.Marshal(req.ServiceTags)
	if err != nil {
		return nil, "", log.Err("failed to encode service tags", err)
	}

	user := &models.User{
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		IsWorker:     req.IsWorker,
		ServiceTags:  tags,
		City:         req.City,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	log.Info("user registered", "userID", user.ID, "isWorker", user.IsWorker)

	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error) {
	log := s.log.Function("Login")

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the account exists.
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	log.Info("user logged in", "userID", user.ID)

	return user, token, nil
}

// ValidateToken parses and verifies a bearer token and returns the user id it
// was issued for.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}

	return subject, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"name": user.DisplayName,
		"iat":  now.Unix(),
		"exp":  now.Add(s.expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", s.log.Function("issueToken").Err("failed to sign token", err, "userID", user.ID)
	}

	return signed, nil
}

func validateRegistration(req models.RegisterRequest) error {
	if strings.TrimSpace(req.DisplayName) == "" {
		return fmt.Errorf("%w: display name is required", ErrValidation)
	}
	if !strings.Contains(req.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	return nil
}
