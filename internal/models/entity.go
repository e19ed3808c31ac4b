package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityKind discriminates the content types that own a comment thread.
type EntityKind string

const (
	// EntityKindLog is a short status log.
	EntityKindLog EntityKind = "log"
	// EntityKindClubPost is a post in a club forum.
	EntityKindClubPost EntityKind = "club_post"
	// EntityKindShowcase is a project showcase.
	EntityKindShowcase EntityKind = "showcase"
)

// EntityKinds lists every kind that can own comments.
var EntityKinds = []EntityKind{EntityKindLog, EntityKindClubPost, EntityKindShowcase}

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityKindLog, EntityKindClubPost, EntityKindShowcase:
		return true
	}
	return false
}

// ParseEntityKind converts a route value into an EntityKind.
func ParseEntityKind(raw string) (EntityKind, error) {
	k := EntityKind(raw)
	if !k.Valid() {
		return "", NewValidationError("Unknown entity kind: " + raw)
	}
	return k, nil
}

// Log is a short status update.
type Log struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	UserID    string         `gorm:"size:36;not null;index" json:"user_id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not provide an ID.
func (l *Log) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// ClubPost is a forum post inside a Club.
type ClubPost struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	ClubID    string         `gorm:"size:36;not null;index" json:"club_id"`
	UserID    string         `gorm:"size:36;not null;index" json:"user_id"`
	Title     string         `gorm:"size:300;not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not provide an ID.
func (p *ClubPost) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Showcase presents a member's project.
type Showcase struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      string         `gorm:"size:36;not null;index" json:"user_id"`
	Title       string         `gorm:"size:300;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	ProjectURL  string         `json:"project_url"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not provide an ID.
func (s *Showcase) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// EntityTable returns the table backing the given kind.
func EntityTable(kind EntityKind) string {
	switch kind {
	case EntityKindLog:
		return "logs"
	case EntityKindClubPost:
		return "club_posts"
	case EntityKindShowcase:
		return "showcases"
	}
	return ""
}
