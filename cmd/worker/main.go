package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"faceattend/internal/audit"
	"faceattend/internal/config"
	"faceattend/internal/queue"
	"faceattend/internal/store"
)

// Worker consumes recognition events and persists them to Postgres.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisTimeout)

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(redisClient.Client, "faceattend:recognitions")
	} else {
		log.Println("WARNING: in-memory queue has no publishers in the worker process; use QUEUE_BACKEND=redis")
		q = queue.NewInMemory(64)
	}

	repo := audit.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for recognition events...")
	for msg := range messages {
		if msg.Type != "recognition" {
			continue
		}

		var evt audit.Event
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Printf("malformed event: %v", err)
			continue
		}

		stored, err := repo.InsertEvent(ctx, evt)
		if err != nil {
			log.Printf("insert event failed: %v", err)
			continue
		}
		log.Printf("event %s stored (recognized=%v live=%v)", stored.ID, stored.Recognized, stored.IsLive)
	}

	log.Println("worker stopped")
}
