package repositories

import (
	"context"
	"time"

	"oficio/internal/database"
	"oficio/internal/logger"
	. "oficio/internal/models"

	"github.com/google/uuid"
)

const (
	USER_CACHE_EXPIRY  = 7 * 24 * time.Hour // 7 days
	USER_CACHE_PREFIX  = "user:"
	EMAIL_CACHE_PREFIX = "email:"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	SearchWorkersByTag(ctx context.Context, tag string) ([]User, error)
	ListWorkerIDs(ctx context.Context) ([]string, error)
}

type userRepository struct {
	db  database.DB
	log logger.Logger
}

func NewUserRepository(db database.DB) UserRepository {
	return &userRepository{
		db:  db,
		log: logger.New("userRepository"),
	}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*User, error) {
	log := r.log.Function("GetByID")

	var user User
	if err := r.getCacheByID(ctx, id, &user); err == nil {
		return &user, nil
	}

	if err := r.getDBByID(ctx, id, &user); err != nil {
		return nil, err
	}

	if err := r.addUserToCache(ctx, &user); err != nil {
		log.Warn("failed to add user to cache", "userID", id, "error", err)
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	log := r.log.Function("GetByEmail")

	// Try the email -> UUID mapping first so repeated logins stay off the DB
	var userUUID string
	emailCacheKey := EMAIL_CACHE_PREFIX + email
	found, err := database.NewCacheBuilder(r.db.Cache.User, emailCacheKey).
		WithContext(ctx).
		Get(&userUUID)
	if err == nil && found {
		var cachedUser User
		if err := r.getCacheByID(ctx, userUUID, &cachedUser); err == nil {
			return &cachedUser, nil
		}
	}

	var user User
	if err := r.db.SQLWithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, log.Err("failed to get user by email", err, "email", email)
	}

	if err := r.addUserToCache(ctx, &user); err != nil {
		log.Warn("failed to add user to cache", "userID", user.ID, "error", err)
	}

	if err := database.NewCacheBuilder(r.db.Cache.User, emailCacheKey).
		WithStruct(user.ID.String()).
		WithTTL(USER_CACHE_EXPIRY).
		WithContext(ctx).
		Set(); err != nil {
		log.Warn("failed to cache email mapping", "email", email, "error", err)
	}

	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	log := r.log.Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(user).Error; err != nil {
		return log.Err("failed to create user", err, "email", user.Email)
	}

	if err := r.addUserToCache(ctx, user); err != nil {
		log.Warn("failed to add user to cache", "userID", user.ID, "error", err)
	}

	return nil
}

func (r *userRepository) Update(ctx context.Context, user *User) error {
	log := r.log.Function("Update")

	if err := r.db.SQLWithContext(ctx).Save(user).Error; err != nil {
		return log.Err("failed to update user", err, "userID", user.ID)
	}

	if err := r.clearUserCache(ctx, user); err != nil {
		log.Warn("failed to clear user cache after update", "userID", user.ID, "error", err)
	}

	return nil
}

// SearchWorkersByTag finds workers advertising the given service tag. The
// jsonb containment query rides the gin index on service_tags.
func (r *userRepository) SearchWorkersByTag(ctx context.Context, tag string) ([]User, error) {
	log := r.log.Function("SearchWorkersByTag")

	var users []User
	err := r.db.SQLWithContext(ctx).
		Where("is_worker = ?", true).
		Where("service_tags @> ?", `["`+tag+`"]`).
		Order("display_name asc").
		Find(&users).Error
	if err != nil {
		return nil, log.Err("failed to search workers", err, "tag", tag)
	}

	return users, nil
}

// ListWorkerIDs returns the id of every worker account, for background jobs
// that walk worker agendas.
func (r *userRepository) ListWorkerIDs(ctx context.Context) ([]string, error) {
	log := r.log.Function("ListWorkerIDs")

	var ids []string
	err := r.db.SQLWithContext(ctx).
		Model(&User{}).
		Where("is_worker = ?", true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, log.Err("failed to list worker ids", err)
	}

	return ids, nil
}

func (r *userRepository) getCacheByID(ctx context.Context, userID string, user *User) error {
	cacheKey := USER_CACHE_PREFIX + userID
	found, err := database.NewCacheBuilder(r.db.Cache.User, cacheKey).WithContext(ctx).Get(user)
	if err != nil {
		return r.log.Function("getCacheByID").
			Err("failed to get user from cache", err, "userID", userID)
	}

	if !found {
		return r.log.Function("getCacheByID").
			Error("user not found in cache", "userID", userID)
	}

	return nil
}

func (r *userRepository) addUserToCache(ctx context.Context, user *User) error {
	cacheKey := USER_CACHE_PREFIX + user.ID.String()
	if err := database.NewCacheBuilder(r.db.Cache.User, cacheKey).
		WithStruct(user).
		WithTTL(USER_CACHE_EXPIRY).
		WithContext(ctx).
		Set(); err != nil {
		return r.log.Function("addUserToCache").
			Err("failed to add user to cache", err, "userID", user.ID)
	}
	return nil
}

func (r *userRepository) clearUserCache(ctx context.Context, user *User) error {
	log := r.log.Function("clearUserCache")

	userCacheKey := USER_CACHE_PREFIX + user.ID.String()
	if err := database.NewCacheBuilder(r.db.Cache.User, userCacheKey).WithContext(ctx).Delete(); err != nil {
		log.Warn("failed to clear user cache", "userID", user.ID, "error", err)
	}

	if user.Email != "" {
		emailCacheKey := EMAIL_CACHE_PREFIX + user.Email
		if err := database.NewCacheBuilder(r.db.Cache.User, emailCacheKey).WithContext(ctx).Delete(); err != nil {
			log.Warn("failed to clear email mapping cache", "email", user.Email, "error", err)
		}
	}

	return nil
}

func (r *userRepository) getDBByID(ctx context.Context, userID string, user *User) error {
	log := r.log.Function("getDBByID")

	id, err := uuid.Parse(userID)
	if err != nil {
		return log.Err("failed to parse userID", err, "userID", userID)
	}

	if err := r.db.SQLWithContext(ctx).First(user, "id = ?", id).Error; err != nil {
		return log.Err("failed to get user by id", err, "id", userID)
	}

	return nil
}
