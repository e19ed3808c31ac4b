// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a member of the community. Only the profile fields the
// comment subsystem needs are modelled here.
type User struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Username    string         `gorm:"size:40;uniqueIndex;not null" json:"username"`
	DisplayName string         `gorm:"size:80" json:"display_name"`
	Email       string         `gorm:"size:255;uniqueIndex;not null" json:"-"`
	Password    string         `json:"-"`
	Avatar      string         `json:"avatar"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not provide an ID.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Profile is the public projection of a User used for mention resolution
// and author display.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

// Profile returns the public projection of the user.
func (u *User) Profile() Profile {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: name,
		Avatar:      u.Avatar,
	}
}
