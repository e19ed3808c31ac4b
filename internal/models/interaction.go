package models

import "time"

// SubjectKind discriminates what a like or bookmark points at.
type SubjectKind string

const (
	// SubjectKindComment targets a single comment.
	SubjectKindComment SubjectKind = "comment"
	// SubjectKindEntity targets a top-level content item.
	SubjectKindEntity SubjectKind = "entity"
)

// ParseSubjectKind converts a route value into a SubjectKind.
func ParseSubjectKind(raw string) (SubjectKind, error) {
	switch k := SubjectKind(raw); k {
	case SubjectKindComment, SubjectKindEntity:
		return k, nil
	}
	return "", NewValidationError("Unknown subject kind: " + raw)
}

// Like is an edge meaning "user likes subject".
// The combination of SubjectKind, SubjectID and UserID must be unique.
type Like struct {
	SubjectKind SubjectKind `gorm:"type:varchar(20);primaryKey" json:"subject_kind"`
	SubjectID   string      `gorm:"size:36;primaryKey" json:"subject_id"`
	UserID      string      `gorm:"size:36;primaryKey;index" json:"user_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Bookmark is an edge meaning "user saved subject". It lives in its own
// table so it never collides with likes.
type Bookmark struct {
	SubjectKind SubjectKind `gorm:"type:varchar(20);primaryKey" json:"subject_kind"`
	SubjectID   string      `gorm:"size:36;primaryKey" json:"subject_id"`
	UserID      string      `gorm:"size:36;primaryKey;index" json:"user_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Subject identifies a likeable/bookmarkable item.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

// String renders the subject as kind:id.
func (s Subject) String() string {
	return string(s.Kind) + ":" + s.ID
}
