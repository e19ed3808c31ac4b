// Package repository implements the data access layer for the comment
// subsystem: comments, likes and bookmarks, the entities that own threads,
// and the user profiles used for authors and mentions.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"clubhouse/internal/database"
	"clubhouse/internal/models"

	"gorm.io/gorm"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// storeError maps a gorm error onto the application error taxonomy. Missing
// rows become NotFound for resource/id, anything else is a transient store
// failure the caller may retry.
func storeError(op, resource string, id any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewTransientStoreError(fmt.Errorf("%s %s: %w", op, strings.ToLower(resource), err))
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
