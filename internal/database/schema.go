package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"clubhouse/internal/config"
	"clubhouse/internal/middleware"
	"clubhouse/internal/models"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do and where the database
// stands.
type SchemaStatus struct {
	Mode        string
	Environment string
	RunSQL      bool
	RunAuto     bool
	Applied     []int
	Pending     []Migration
}

// SchemaCheck is one structural property the comment subsystem relies on.
type SchemaCheck struct {
	Name   string
	OK     bool
	Detail string
}

func schemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

// schemaPolicy decides whether SQL migrations and AutoMigrate run. AutoMigrate
// never runs against production-like environments unless destructive
// changes were explicitly allowed.
func schemaPolicy(cfg *config.Config) (runSQL, runAuto bool, err error) {
	env := strings.ToLower(strings.TrimSpace(cfg.Env))
	prodLike := slices.Contains([]string{"production", "prod", "staging", "stage"}, env)

	switch mode := schemaMode(cfg); mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

func runAutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database up to date according to the schema mode,
// then logs any comment-subsystem check that still fails.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		migrator, err := NewMigrator(db)
		if err != nil {
			return err
		}
		if _, err := migrator.Up(ctx); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if runAuto {
		if cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true; review schema diffs before deploying")
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", schemaMode(cfg)), slog.String("env", cfg.Env))
		if err := runAutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	for _, check := range VerifyCommentSchema(ctx, db) {
		if !check.OK {
			middleware.Logger.Warn("Schema check failed", slog.String("check", check.Name), slog.String("detail", check.Detail))
		}
	}
	return nil
}

// GetSchemaStatus reports the schema policy and, when SQL migrations are in
// use, which versions are applied and pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{Mode: schemaMode(cfg), Environment: cfg.Env, RunSQL: runSQL, RunAuto: runAuto}
	if !runSQL {
		return status, nil
	}

	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	if status.Applied, err = migrator.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = migrator.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}

// interactionKey is the composite key that makes a like or bookmark unique
// per viewer and subject.
var interactionKey = []string{"subject_kind", "subject_id", "user_id"}

// VerifyCommentSchema checks the structure that comment reads and writes
// depend on: every table, the tombstone and parent columns, the entity index
// used to load a thread, and the composite keys that keep interaction
// toggles idempotent.
func VerifyCommentSchema(ctx context.Context, db *gorm.DB) []SchemaCheck {
	m := db.WithContext(ctx).Migrator()
	var checks []SchemaCheck

	for _, model := range PersistentModels() {
		name := tableName(db, model)
		checks = append(checks, newCheck("table "+name, m.HasTable(model), "table is missing"))
	}

	comment := &models.Comment{}
	for _, column := range []string{"deleted", "parent_id", "entity_kind", "entity_id"} {
		checks = append(checks, newCheck("comments."+column, m.HasColumn(comment, column), "column is missing"))
	}
	checks = append(checks, newCheck("index idx_comment_entity", m.HasIndex(comment, "idx_comment_entity"),
		"thread loads scan the whole comments table"))

	for _, model := range []any{&models.Like{}, &models.Bookmark{}} {
		checks = append(checks, primaryKeyCheck(db, m, model))
	}
	return checks
}

func newCheck(name string, ok bool, detail string) SchemaCheck {
	if ok {
		detail = ""
	}
	return SchemaCheck{Name: name, OK: ok, Detail: detail}
}

func primaryKeyCheck(db *gorm.DB, m gorm.Migrator, model any) SchemaCheck {
	check := SchemaCheck{Name: "primary key " + tableName(db, model)}
	columns, err := m.ColumnTypes(model)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	var key []string
	for _, c := range columns {
		if pk, ok := c.PrimaryKey(); ok && pk {
			key = append(key, c.Name())
		}
	}
	slices.Sort(key)
	want := slices.Sorted(slices.Values(interactionKey))
	check.OK = slices.Equal(key, want)
	if !check.OK {
		check.Detail = fmt.Sprintf("want (%s), have (%s)", strings.Join(interactionKey, ", "), strings.Join(key, ", "))
	}
	return check
}

func tableName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}
