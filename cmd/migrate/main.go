// ABOUTME: Migration utility for moving a CRM between storage backends.
// ABOUTME: Provides dry-run and overwrite controls and seeds nothing on its own.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/kv"
)

func main() {
	from := flag.String("from", "", "Source backend (required): "+strings.Join(kv.Backends, ", "))
	fromPath := flag.String("from-path", "", "Source path (required for file-backed stores)")
	to := flag.String("to", "", "Destination backend (required)")
	toPath := flag.String("to-path", "", "Destination path")
	mongoURI := flag.String("mongo-uri", os.Getenv("KION_STORAGE_MONGO_URI"), "MongoDB URI when either side is mongo")
	redisURL := flag.String("redis-url", os.Getenv("KION_STORAGE_REDIS_URL"), "Redis URL when either side is redis")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	force := flag.Bool("force", false, "Overwrite keys that already exist in the destination")
	flag.Parse()

	if *from == "" || *to == "" {
		log.Fatal("Error: -from and -to flags are required")
	}

	ctx := context.Background()
	if err := migrate(ctx,
		kv.Options{Backend: *from, Path: *fromPath, MongoURI: *mongoURI, MongoDatabase: "kion", MongoCollection: "kv",
			RedisURL: *redisURL, RedisPrefix: kv.DefaultRedisPrefix},
		kv.Options{Backend: *to, Path: *toPath, MongoURI: *mongoURI, MongoDatabase: "kion", MongoCollection: "kv",
			RedisURL: *redisURL, RedisPrefix: kv.DefaultRedisPrefix},
		*dryRun, *force,
	); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migration completed successfully")
}

func migrate(ctx context.Context, fromOpts, toOpts kv.Options, dryRun, force bool) error {
	if fromOpts.Backend == toOpts.Backend && fromOpts.Path == toOpts.Path {
		return fmt.Errorf("source and destination are the same store")
	}

	src, err := kv.Open(ctx, fromOpts)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	// Refuse to copy something that does not look like a CRM.
	seeded, err := db.NewRepository(src).Initialized(ctx)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	if !seeded {
		log.Printf("WARNING: source has no seed sentinel")
		if !force {
			return fmt.Errorf("source does not look like a KionCRM store; use -force to copy anyway")
		}
	}

	dst, err := kv.Open(ctx, toOpts)
	if err != nil {
		return fmt.Errorf("failed to open destination: %w", err)
	}
	defer func() { _ = dst.Close() }()

	res, err := kv.Copy(ctx, dst, src, force, dryRun)
	if err != nil {
		return err
	}

	prefix := ""
	if dryRun {
		prefix = "[DRY RUN] "
	}
	for _, k := range res.Copied {
		log.Printf("%scopy %s", prefix, k)
	}
	for _, k := range res.Overwritten {
		log.Printf("%soverwrite %s", prefix, k)
	}
	for _, k := range res.Skipped {
		log.Printf("%sskip %s (exists in destination; use -force to overwrite)", prefix, k)
	}
	log.Printf("%s%d copied, %d overwritten, %d skipped", prefix, len(res.Copied), len(res.Overwritten), len(res.Skipped))
	return nil
}
