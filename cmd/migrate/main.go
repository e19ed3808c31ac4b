// Command migrate runs schema operations for the comments database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"clubhouse/internal/config"
	"clubhouse/internal/database"

	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":     up,
	"auto":   auto,
	"status": status,
	"down":   down,
	"verify": verify,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: migrate <up|auto|status|down|verify> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(flag.Arg(0)))]
	if !ok {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	return cmd(context.Background(), db, cfg, flag.Args()[1:])
}

func up(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	migrator, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	ran, err := migrator.Up(ctx)
	for _, m := range ran {
		log.Printf("applied %s", m)
	}
	if err != nil {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	log.Printf("%d sql migrations applied", len(ran))
	return nil
}

func auto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto schema apply failed: %w", err)
	}
	log.Println("automigrations applied")
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d",
		st.Mode, st.Environment, st.RunSQL, st.RunAuto, len(st.Applied), len(st.Pending))
	for _, m := range st.Pending {
		log.Printf("pending: %s", m)
	}
	return nil
}

func down(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	migrator, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	if err := migrator.Down(ctx, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	log.Printf("rolled back migration %d", version)
	return nil
}

// verify runs the comment schema checks and fails if any of them does.
func verify(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	var failed []string
	checks := database.VerifyCommentSchema(ctx, db)
	for _, check := range checks {
		if check.OK {
			log.Printf("ok    %s", check.Name)
			continue
		}
		log.Printf("FAIL  %s: %s", check.Name, check.Detail)
		failed = append(failed, check.Name)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d schema checks failed: %s", len(failed), len(checks), strings.Join(failed, ", "))
	}
	return nil
}
