// cleanup detaches every configured symbol from the live feed. Useful
// after a crash that left server-side subscriptions behind.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"main/internal/app"
	feedalpaca "main/internal/feed/alpaca"
	"main/internal/ingest"
	"main/internal/ops"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to the JSON setups file")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall deadline")
	flag.Parse()

	env := ops.LoadEnv()
	if env.APIKey == "" || env.SecretKey == "" {
		log.Fatal("API_KEY and SECRET_KEY must be set")
	}

	setups, err := ops.NewFileSource(*configPath)
	if err != nil {
		log.Fatalf("load setups: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	feed := feedalpaca.NewStream(feedalpaca.Config{Key: env.APIKey, Secret: env.SecretKey})
	stream := ingest.NewSupervisor(ingest.SupervisorConfig{}, feed, nil)

	// Run the transport just long enough to authenticate, then tear every
	// subscription down through the shared shutdown path.
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("feed stopped: %v", err)
		}
	}()
	time.Sleep(2 * time.Second)

	app.NewShutdown(setups, stream, feed).Run(ctx)
}
