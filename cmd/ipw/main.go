// Command ipw is a dev CLI for instagrampostwatcher maintenance tasks.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/valenzanico/instagrampostwatcher/internal/app"
	"github.com/valenzanico/instagrampostwatcher/internal/config"
	"github.com/valenzanico/instagrampostwatcher/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "posts":
		runPosts()
	case "delete":
		if len(os.Args) < 3 {
			fmt.Println("Usage: ipw delete <shortcode>")
			os.Exit(1)
		}
		runDelete(os.Args[2])
	case "run":
		runCycle()
	case "config":
		runConfig()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: ipw <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  posts              List posts recorded as published")
	fmt.Println("  delete <shortcode> Remove a post record (forces a re-publish)")
	fmt.Println("  run                Execute one publish cycle and exit")
	fmt.Println("  config             Print the config file path")
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
		cfg.ApplyEnv()
	}
	return cfg
}

func runPosts() {
	cfg := loadConfig()

	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Open store: %v", err)
	}
	defer st.Close()

	posts, err := st.ListAll(context.Background())
	if err != nil {
		log.Fatalf("List posts: %v", err)
	}

	if len(posts) == 0 {
		fmt.Println("No posts recorded.")
		return
	}

	for _, p := range posts {
		caption := p.Caption
		if caption == "" {
			caption = "(no description)"
		}
		fmt.Printf("%s  %s  %s\n", p.Shortcode, p.PublishedAt.Format("2006-01-02 15:04"), caption)
	}
}

func runDelete(shortcode string) {
	cfg := loadConfig()

	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Open store: %v", err)
	}
	defer st.Close()

	deleted, err := st.Delete(context.Background(), shortcode)
	if err != nil {
		log.Fatalf("Delete %s: %v", shortcode, err)
	}
	if !deleted {
		fmt.Printf("No record for %s\n", shortcode)
		return
	}
	fmt.Printf("Deleted record for %s\n", shortcode)
}

func runCycle() {
	cfg := loadConfig()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}

	if err := a.RunOnce(context.Background()); err != nil {
		log.Fatalf("Cycle failed: %v", err)
	}
}

func runConfig() {
	path, err := config.ConfigPath()
	if err != nil {
		log.Fatalf("Config path: %v", err)
	}
	fmt.Println(path)
}
