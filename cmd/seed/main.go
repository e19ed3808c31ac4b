// Command main runs the demo data seeder.
package main

import (
	"context"
	"flag"
	"log"

	"clubhouse/internal/config"
	"clubhouse/internal/database"
	"clubhouse/internal/models"
	"clubhouse/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	perKind := flag.Int("entities", 10, "Entities to create per kind (log, club_post, showcase)")
	roots := flag.Int("roots", 12, "Root comments per entity")
	replies := flag.Int("replies", 6, "Maximum replies per root comment")
	mentions := flag.Float64("mention-rate", 0.3, "Probability that a comment mentions another member")
	likes := flag.Float64("like-rate", 0.15, "Probability that a member likes a given item")
	randomSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Store the demo password unhashed")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d entities per kind, clean=%v\n", *numUsers, *perKind, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("❌ Refusing to seed a production database")
	}
	if err := models.SetIDNode(cfg.SnowflakeNode); err != nil {
		log.Fatalf("Invalid SNOWFLAKE_NODE: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{
		Users:           *numUsers,
		EntitiesPerKind: *perKind,
		RootsPerEntity:  *roots,
		MaxReplies:      *replies,
		MentionRate:     *mentions,
		LikeRate:        *likes,
		RandomSeed:      *randomSeed,
		SkipBcrypt:      *fast,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.Run(ctx); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DemoPassword)
}
