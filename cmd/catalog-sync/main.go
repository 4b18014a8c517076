package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"bookhub/internal/catalog"
	"bookhub/pkg/database"
)

func main() {
	var (
		peers  = flag.String("peers", "", "comma-separated base URLs of peer bookhub APIs")
		mirror = flag.String("mirror", "", "base URL of a static catalog server")
	)
	flag.Parse()

	var sources []catalog.Source
	for _, peer := range strings.Split(*peers, ",") {
		peer = strings.TrimSpace(peer)
		if peer != "" {
			sources = append(sources, catalog.NewAPISource(peer))
		}
	}
	if *mirror != "" {
		sources = append(sources, catalog.NewMirrorSource(*mirror))
	}
	if len(sources) == 0 {
		log.Fatal("no sources: pass -peers and/or -mirror")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	agg := catalog.NewAggregator(sources...)

	entries, err := agg.FetchAndMerge(ctx)
	if err != nil {
		log.Fatalf("fetch failed: %v", err)
	}

	log.Printf("merged entries: %d", len(entries))

	if err := catalog.Save(ctx, db, entries); err != nil {
		log.Fatalf("save failed: %v", err)
	}

	log.Println("catalog synced into local store")
}
