package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/example/moonbaby-storefront/internal/adapter/amqpfeed"
	fsadapter "github.com/example/moonbaby-storefront/internal/adapter/firestore"
	"github.com/example/moonbaby-storefront/internal/adapter/natsstan"
	"github.com/example/moonbaby-storefront/internal/config"
	"github.com/example/moonbaby-storefront/internal/domain"
)

// publisher читает товар в формате JSON из stdin и отправляет его в ленту каталога
// (stan или amqp) либо пишет напрямую в Firestore.
func main() {
	target := flag.String("to", "", "stan | amqp | firestore (default: FEED_TRANSPORT)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.Load(os.Getenv("STOREFRONT_CONFIG"))
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}
	if *target == "" {
		*target = cfg.FeedTransport
	}

	var p domain.Product
	if err := json.NewDecoder(os.Stdin).Decode(&p); err != nil {
		logger.Error("read json from stdin", "err", err)
		os.Exit(1)
	}
	if p.ID == "" {
		logger.Error("product id is required")
		os.Exit(1)
	}
	b, err := json.Marshal(p)
	if err != nil {
		logger.Error("marshal", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch *target {
	case "stan":
		clientID := cfg.STANClientID
		if clientID == "" {
			clientID = "storefront-publisher"
		}
		err = natsstan.Publish(cfg.STANClusterID, clientID, cfg.NATSURL, cfg.STANSubject, b)
	case "amqp":
		err = amqpfeed.Publish(ctx, cfg.AMQPURL, cfg.AMQPQueue, b)
	case "firestore":
		client, cerr := fsadapter.NewClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if cerr != nil {
			logger.Error("firestore", "err", cerr)
			os.Exit(1)
		}
		defer client.Close()
		err = fsadapter.NewProductCatalogFS(client).Upsert(ctx, p)
	default:
		logger.Error("unknown target", "to", *target)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("publish", "to", *target, "err", err)
		os.Exit(1)
	}
	logger.Info("published product", "id", p.ID, "bytes", len(b), "to", *target)
}
