package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClubStatus defines the moderation state of a club.
type ClubStatus string

const (
	// ClubStatusActive indicates a club is visible and accepts posts.
	ClubStatusActive ClubStatus = "active"
	// ClubStatusArchived indicates a club is read-only.
	ClubStatusArchived ClubStatus = "archived"
)

// Club is an interest community that owns a forum of ClubPosts.
type Club struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `gorm:"size:120;not null" json:"name"`
	Slug        string     `gorm:"size:24;not null;uniqueIndex" json:"slug"`
	Description string     `gorm:"type:text" json:"description"`
	OwnerID     string     `gorm:"size:36;index" json:"owner_id"`
	Status      ClubStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Club) TableName() string {
	return "clubs"
}

// BeforeCreate assigns a UUID when the caller did not provide an ID.
func (c *Club) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
