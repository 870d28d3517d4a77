package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// User is a marketplace account. Workers additionally advertise the service
// tags they can be hired for; clients find them by tag.
type User struct {
	BaseUUIDModel
	DisplayName  string         `gorm:"type:text;not null"      json:"displayName"`
	Email        string         `gorm:"type:text;uniqueIndex"   json:"email"`
	PasswordHash string         `gorm:"type:text"               json:"-"`
	IsWorker     bool           `gorm:"type:bool;default:false" json:"isWorker"`
	ServiceTags  datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"serviceTags"`
	City         string         `gorm:"type:text"               json:"city,omitempty"`
}

// Tags decodes the stored service tag array, nil on malformed data.
func (u *User) Tags() []string {
	var tags []string
	if err := json.Unmarshal(u.ServiceTags, &tags); err != nil {
		return nil
	}
	return tags
}

// Party is the identity handed to the booking coordinator for this user.
func (u *User) Party() Party {
	return Party{ID: u.ID.String(), Name: u.DisplayName}
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	IsWorker    bool     `json:"isWorker"`
	ServiceTags []string `json:"serviceTags,omitempty"`
	City        string   `json:"city,omitempty"`
}

func (u *User) ToProfile() UserProfile {
	return UserProfile{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName,
		IsWorker:    u.IsWorker,
		ServiceTags: u.Tags(),
		City:        u.City,
	}
}

type RegisterRequest struct {
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	IsWorker    bool     `json:"isWorker"`
	ServiceTags []string `json:"serviceTags,omitempty"`
	City        string   `json:"city,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
