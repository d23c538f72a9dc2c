// Command reset-session wipes the shared session from Redis, forcing
// every agent sharing the store back to login.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

func main() {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		panic(err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Del(ctx,
		"session:user",
		"session:token",
		"session:refresh_token",
		"session:expires_at",
	).Err(); err != nil {
		panic(err)
	}

	change, _ := json.Marshal(map[string]string{"kind": "cleared", "origin": "admin"})
	if err := rdb.Publish(ctx, "session:changes", change).Err(); err != nil {
		panic(err)
	}

	fmt.Println("Session cleared, all agents notified")
}
