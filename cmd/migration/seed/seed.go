package seed

import (
	"encoding/json"
	"oficio/config"
	"oficio/internal/logger"

	. "oficio/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func tags(values ...string) datatypes.JSON {
	data, _ := json.Marshal(values)
	return datatypes.JSON(data)
}

func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return log.Err("failed to hash seed password", err)
	}

	users := []User{
		{
			DisplayName:  "Ana Souza",
			Email:        "ana@example.com",
			PasswordHash: string(hash),
			City:         "Fortaleza",
		},
		{
			DisplayName:  "Bruno Lima",
			Email:        "bruno@example.com",
			PasswordHash: string(hash),
			IsWorker:     true,
			ServiceTags:  tags("pintura", "reforma"),
			City:         "Fortaleza",
		},
		{
			DisplayName:  "Carla Mendes",
			Email:        "carla@example.com",
			PasswordHash: string(hash),
			IsWorker:     true,
			ServiceTags:  tags("eletricista"),
			City:         "Sobral",
		},
	}

	for _, user := range users {
		var existingUser User
		if err := db.First(&existingUser, "email = ?", user.Email).Error; err == nil {
			log.Info("User already exists", "email", user.Email)
			continue
		}
		log.Info("Seeding user", "email", user.Email)
		if err := db.Create(&user).Error; err != nil {
			log.Er("failed to create user", err, "email", user.Email)
		}
	}

	return nil
}
