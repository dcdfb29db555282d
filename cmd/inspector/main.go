// Command inspector prints the persisted economy state and can follow the
// live event stream of a running server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mcbn/tradepost/internal/config"
	"github.com/mcbn/tradepost/internal/eventfeed"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/repository"
	"github.com/mcbn/tradepost/internal/service"
)

func main() {
	backend := flag.String("store", "auto", "state backend: auto, postgres or redis")
	follow := flag.String("follow", "", "server url whose /v1/events stream to follow, e.g. http://localhost:8080")
	player := flag.String("player", "", "player id sent with -follow")
	kinds := flag.String("kinds", "", "comma separated event kinds for -follow")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	if *follow != "" {
		if err := followEvents(*follow, *player, *kinds); err != nil {
			log.Fatal(err)
		}
		return
	}

	store, closeFn, err := openStore(cfg, *backend)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeFn()

	snap, err := loadSnapshot(context.Background(), store)
	if err != nil {
		log.Fatalf("Failed to load state: %v", err)
	}
	fmt.Fprint(os.Stdout, renderSnapshot(snap))
}

func openStore(cfg *config.Config, backend string) (service.Store, func(), error) {
	if backend == "auto" {
		switch {
		case cfg.Database.DSN != "":
			backend = "postgres"
		case cfg.Redis.Addr != "":
			backend = "redis"
		default:
			return nil, nil, fmt.Errorf("no database.dsn or redis.addr configured")
		}
	}

	switch backend {
	case "postgres":
		db, err := repository.NewDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return repository.NewPostgresStore(db), closeFn, nil
	case "redis":
		client, err := repository.NewRedisClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisStore(client), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", backend)
}

func followEvents(server, player, kinds string) error {
	var filter []string
	for _, k := range strings.Split(kinds, ",") {
		if k = strings.TrimSpace(k); k != "" {
			filter = append(filter, k)
		}
	}
	f, err := eventfeed.NewFollower(server, player, filter, func(ev eventfeed.Event) {
		fmt.Fprintln(os.Stdout, renderEvent(ev))
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return f.Run(ctx)
}
