package models

import (
	"time"

	"gorm.io/gorm"
)

// DeletedPlaceholder is shown in place of a tombstoned comment's body.
const DeletedPlaceholder = "[deleted]"

// Comment is one row of a flat, parent-referencing comment set. ParentID is
// nil for root comments.
type Comment struct {
	ID         string         `gorm:"primaryKey;size:32" json:"id"`
	EntityKind EntityKind     `gorm:"type:varchar(20);not null;index:idx_comment_entity,priority:1" json:"entity_kind"`
	EntityID   string         `gorm:"size:36;not null;index:idx_comment_entity,priority:2" json:"entity_id"`
	UserID     string         `gorm:"size:36;not null;index" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Body       string         `gorm:"type:text;not null" json:"body"`
	ParentID   *string        `gorm:"size:32;index" json:"parent_id"`
	Deleted    bool           `gorm:"not null;default:false" json:"deleted"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a snowflake id when none was provided.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewCommentID()
	}
	return nil
}

// IsRoot reports whether the comment anchors a thread.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil || *c.ParentID == ""
}

// DisplayBody returns the body to show, substituting the placeholder for
// tombstoned comments.
func (c *Comment) DisplayBody() string {
	if c.Deleted {
		return DeletedPlaceholder
	}
	return c.Body
}
