package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rok4/tileserver/internal/confload"
	"github.com/rok4/tileserver/internal/server"
	"github.com/rok4/tileserver/internal/tilesource"
)

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("tileserver: loading config: %v", err)
	}

	cat, err := confload.Load(cfg.LayersDir, cfg.TMSDir, cfg.StylesDir, cfg.ServicesCfg)
	if err != nil {
		log.Fatalf("tileserver: loading catalogue: %v", err)
	}

	store, err := tilesource.NewDiskStore(cfg.MaxOpenSlabFiles)
	if err != nil {
		log.Fatalf("tileserver: building disk store: %v", err)
	}

	srv, err := server.New(cfg, cat, store)
	if err != nil {
		log.Fatalf("tileserver: building server: %v", err)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		fmt.Println("tileserver: shutting down")
		if err := srv.Shutdown(); err != nil {
			log.Printf("tileserver: shutdown: %v", err)
		}
		os.Exit(0)
	}()

	log.Printf("tileserver: listening on %s (%d workers)", cfg.ListenAddr, cfg.WorkerCount)
	if err := srv.Start(); err != nil {
		log.Fatalf("tileserver: %v", err)
	}
}
