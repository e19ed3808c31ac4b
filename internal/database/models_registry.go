package database

import "clubhouse/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Club{},
		&models.Log{},
		&models.ClubPost{},
		&models.Showcase{},
		&models.Comment{},
		&models.Like{},
		&models.Bookmark{},
	}
}
