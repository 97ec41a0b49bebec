package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/valenzanico/instagrampostwatcher/internal/app"
	"github.com/valenzanico/instagrampostwatcher/internal/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load or create configuration
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			// First run - create default config
			cfg = config.Default()
			cfg.ApplyEnv()
			if err := cfg.Save(); err != nil {
				log.Printf("Warning: could not save default config: %v", err)
			} else {
				path, _ := config.ConfigPath()
				log.Printf("Created default config at: %s", path)
			}
		} else {
			log.Printf("Warning: could not load config: %v (using defaults)", err)
			cfg = config.Default()
			cfg.ApplyEnv()
		}
	}

	if cfg.Telegram.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}
	if cfg.Instagram.Account == "" {
		log.Fatal("INSTAGRAM_PAGE is required")
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("instagrampostwatcher starting...")
	if err := a.Run(ctx); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}
