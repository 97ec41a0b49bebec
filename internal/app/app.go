// Package app wires the services together and runs the bot. All
// dependencies are constructed once at startup and passed in explicitly.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/valenzanico/instagrampostwatcher/internal/config"
	"github.com/valenzanico/instagrampostwatcher/internal/ghost"
	"github.com/valenzanico/instagrampostwatcher/internal/instagram"
	"github.com/valenzanico/instagrampostwatcher/internal/publisher"
	"github.com/valenzanico/instagrampostwatcher/internal/scheduler"
	"github.com/valenzanico/instagrampostwatcher/internal/store"
	"github.com/valenzanico/instagrampostwatcher/internal/telegram"
)

// App holds the application state.
type App struct {
	cfg      *config.Config
	store    *store.Store
	pub      *publisher.Publisher
	runner   *publisher.Runner
	sched    *scheduler.Scheduler
	commands *telegram.Commands
}

// New builds the full dependency graph from configuration.
func New(cfg *config.Config) (*App, error) {
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	feed := instagram.NewClient()
	fetcher := instagram.NewFetcher(feed, st, cfg.Instagram.Account, cfg.Instagram.MediaDir)

	blog, err := ghost.New(
		cfg.Ghost.URL,
		cfg.Ghost.AdminAPIKey,
		time.Duration(cfg.Ghost.APITimeoutSecs)*time.Second,
		time.Duration(cfg.Ghost.UploadTimeoutSecs)*time.Second,
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	bot, err := telegram.NewBot(cfg.Telegram.BotToken,
		time.Duration(cfg.Telegram.SendTimeoutSecs)*time.Second)
	if err != nil {
		st.Close()
		return nil, err
	}

	channel := telegram.NewSender(bot, cfg.Telegram.ChannelID)
	commands := telegram.NewCommands(bot, cfg.Telegram.ChannelID, cfg.Instagram.Account, st)

	pub := publisher.New(fetcher, blog, channel, st,
		cfg.Instagram.ScanLimit, cfg.Ghost.Tags, cfg.Ghost.Status)
	runner := publisher.NewRunner(pub,
		time.Duration(cfg.Schedule.CycleTimeoutMins)*time.Minute)

	sched, err := scheduler.New(cfg.Schedule.Timezone)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{
		cfg:      cfg,
		store:    st,
		pub:      pub,
		runner:   runner,
		sched:    sched,
		commands: commands,
	}, nil
}

// RunOnce executes a single publish cycle and exits. Used by the dev CLI.
func (a *App) RunOnce(ctx context.Context) error {
	defer a.store.Close()
	return a.pub.RunCycle(ctx)
}

// Run starts the command loop, the cycle runner and the scheduler, then
// blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.sched.AddIntervalJob("check_instagram_posts",
		a.cfg.Schedule.IntervalHours, func() { a.runner.Trigger() }); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runner.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.commands.Run(ctx)
	}()

	a.sched.Start()
	log.Printf("[app] Watching @%s, checking every %d hour(s)",
		a.cfg.Instagram.Account, a.cfg.Schedule.IntervalHours)

	if a.cfg.Schedule.RunAtStartup {
		log.Println("[app] Checking for new posts at startup")
		a.runner.Trigger()
	}

	<-ctx.Done()

	a.sched.Stop()
	wg.Wait()
	return a.store.Close()
}
