// Command watch follows one entity's comment feed and prints the refreshed
// first page whenever another writer changes it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"clubhouse/internal/cache"
	"clubhouse/internal/client"
	"clubhouse/internal/config"
	"clubhouse/internal/mention"
	"clubhouse/internal/models"
	"clubhouse/internal/notifications"
	"clubhouse/internal/service"
)

func main() {
	kindFlag := flag.String("kind", "log", "Entity kind (log, club_post, showcase)")
	entityID := flag.String("id", "", "Entity id to watch")
	apiURL := flag.String("api", "http://localhost:8375", "API base URL used to refetch pages")
	token := flag.String("token", "", "Bearer token, so liked/bookmarked reflect your account")
	pageSize := flag.Int("page-size", service.DefaultPageSize, "Threads per page")
	flag.Parse()

	kind, err := models.ParseEntityKind(*kindFlag)
	if err != nil || *entityID == "" {
		log.Fatal("usage: watch -kind <log|club_post|showcase> -id <entity id>")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cache.InitRedis(cfg.RedisURL)
	if cache.GetClient() == nil {
		log.Fatal("Redis is required to follow the change feed")
	}

	opts := []client.Option{}
	if *token != "" {
		opts = append(opts, client.WithToken(*token))
	}
	api := client.New(*apiURL, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresh := func() {
		page, err := api.ThreadPage(ctx, kind, *entityID, 1, *pageSize)
		if err != nil {
			log.Printf("refetch failed: %v", err)
			return
		}
		printPage(page)
	}
	refresh()

	sub, err := notifications.NewListener(cache.GetClient()).Subscribe(ctx, kind, *entityID, func(ev notifications.ChangeEvent) {
		log.Printf("comment %s %s", ev.CommentID, ev.Type)
		refresh()
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	log.Printf("watching %s", notifications.CommentChannel(kind, *entityID))

	<-ctx.Done()
	sub.Close()
	_ = cache.Close()
}

func printPage(page *service.ThreadPage) {
	fmt.Printf("\n%s/%s: page %d of %d, %d threads\n",
		page.EntityKind, page.EntityID, page.Page, page.TotalPages, page.TotalRoots)
	for _, t := range page.Threads {
		printComment(t.Comment, 0)
		for _, r := range t.Replies {
			printComment(r, 1)
		}
	}
}

func printComment(c service.CommentView, depth int) {
	author := "unknown"
	if c.Author != nil {
		author = "@" + c.Author.Username
	}
	text := mention.PlainText(slices.Values(c.Segments))
	fmt.Printf("%s%s: %s  (♥ %d)\n", strings.Repeat("    ", depth), author, text, c.LikeCount)
}
