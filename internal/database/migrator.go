package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"clubhouse/internal/middleware"

	"gorm.io/gorm"
)

// SchemaVersion records one applied migration.
type SchemaVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (SchemaVersion) TableName() string {
	return "schema_versions"
}

// Migrator applies and reverts SQL migrations. Each step runs in its own
// transaction together with its schema_versions row.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator returns a Migrator over the embedded migrations.
func NewMigrator(db *gorm.DB) (*Migrator, error) {
	all, err := Migrations()
	if err != nil {
		return nil, err
	}
	return newMigrator(db, all), nil
}

func newMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations}
}

// Applied returns the recorded versions, oldest first. Versions recorded in
// the database but unknown to this build are an error.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaVersion{}); err != nil {
		return nil, fmt.Errorf("ensure schema_versions: %w", err)
	}
	var versions []int
	if err := m.db.WithContext(ctx).Model(&SchemaVersion{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read schema_versions: %w", err)
	}
	if err := checkKnown(versions, m.migrations); err != nil {
		return nil, err
	}
	return versions, nil
}

// Pending returns the migrations not yet applied, oldest first.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, mig := range m.migrations {
		if !slices.Contains(applied, mig.Version) {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration and returns the ones it ran.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}
	for i, mig := range pending {
		middleware.Logger.Info("Applying migration", slog.String("migration", mig.String()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.Up).Error; err != nil {
				return err
			}
			return tx.Create(&SchemaVersion{Version: mig.Version, Name: mig.Name}).Error
		})
		if err != nil {
			return pending[:i], fmt.Errorf("apply %s: %w", mig, err)
		}
	}
	return pending, nil
}

// Down reverts version, which must be the most recently applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 || applied[len(applied)-1] != version {
		if !slices.Contains(applied, version) {
			return fmt.Errorf("migration %06d has not been applied", version)
		}
		return fmt.Errorf("migration %06d is not the latest applied (%06d)", version, applied[len(applied)-1])
	}
	idx := slices.IndexFunc(m.migrations, func(mig Migration) bool { return mig.Version == version })
	mig := m.migrations[idx]

	middleware.Logger.Info("Reverting migration", slog.String("migration", mig.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.Down).Error; err != nil {
			return fmt.Errorf("revert %s: %w", mig, err)
		}
		return tx.Delete(&SchemaVersion{}, "version = ?", version).Error
	})
}

func checkKnown(applied []int, registered []Migration) error {
	var unknown []string
	for _, v := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("schema_versions has versions this build does not know: %s (revert them with cmd/migrate or reset the development database)",
		strings.Join(unknown, ", "))
}
