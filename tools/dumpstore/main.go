// Command dumpstore prints the raw contents of a reelnight data store, for
// inspecting what a deployment has persisted.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"reelnight/config"
	"reelnight/internal/kvstore"
)

func main() {
	var (
		configPath = flag.String("config", "data/settings.json", "Path to backend settings.json")
		key        = flag.String("key", "", "Dump a single key instead of all known keys")
	)
	flag.Parse()

	mgr := config.NewManager(*configPath)
	settings, err := mgr.Load()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	store, err := kvstore.Open(settings.Storage.Driver, settings.Storage.Directory, settings.Storage.Database)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	keys := []string{"movies", "challenges", "active_challenge", "omdb_api_key"}
	if *key != "" {
		keys = []string{*key}
	}

	for _, k := range keys {
		value, ok, err := store.Get(k)
		if err != nil {
			log.Fatalf("get %s: %v", k, err)
		}
		if !ok {
			fmt.Printf("-- %s: (unset)\n", k)
			continue
		}
		fmt.Printf("-- %s:\n", k)
		os.Stdout.Write(value)
		fmt.Println()
	}
}
