// Clean empties the signal and account tables. Operational use only;
// the engine never deletes rows itself.
package main

import (
	"flag"
	"log"

	"main/internal/ops"
	"main/internal/store"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	client, err := conn.New(loaded.Conn)
	if err != nil {
		log.Fatalf("store connection failed: %v", err)
	}
	defer client.Close()

	if err := store.New(client.DB()).Purge(); err != nil {
		log.Fatalf("purge failed: %v", err)
	}
	log.Println("database cleared")
}
