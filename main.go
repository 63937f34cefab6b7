package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"star-core/internal/api"
	"star-core/internal/events"
	"star-core/internal/monitor"
	"star-core/internal/persistence"
	"star-core/internal/profile"
	"star-core/pkg/cache"
	"star-core/pkg/config"
	"star-core/pkg/db"
	"star-core/pkg/i18n"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}

	i18n.SetLanguage(i18n.Language(cfg.Language))
	log.Println(i18n.Get("Starting"))
	log.Printf(i18n.Get("ConfigLoaded"), cfg.Port)
	log.Printf(i18n.Get("UsingDBPath"), cfg.DBPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf(i18n.Get("DBInitFailed"), err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf(i18n.Get("DBMigrationsFailed"), err)
	}

	var profiles *profile.Set
	if cfg.ProfilesPath != "" {
		profiles, err = profile.Load(cfg.ProfilesPath)
		if err != nil {
			log.Fatalf(i18n.Get("ProfilesLoadFailed"), err)
		}
		log.Printf(i18n.Get("ProfilesLoaded"), len(profiles.Names()), cfg.ProfilesPath)
	}

	runMetrics := monitor.NewRunMetrics()
	log.Println(i18n.Get("MetricsInit"))

	mon := &monitor.Monitor{
		Bus:     bus,
		AlertFn: func(msg string) { log.Printf("[ALERT] %s", msg) },
	}
	mon.Start(ctx)

	journal := persistence.NewJournal(database, 100, time.Second)
	journal.Attach(bus)
	defer journal.Close()

	programs := cache.NewProgramCache(cfg.CacheTTL, cfg.CacheMaxEntries)
	go sweepCache(ctx, programs, cfg.CacheTTL)

	// API
	server := api.NewServer(bus, database, runMetrics, api.Options{
		Runtime:        cfg.RuntimeConfig(),
		Profiles:       profiles,
		Cache:          programs,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RequestTimeout: cfg.RequestTimeout,
	})
	go func() {
		log.Printf(i18n.Get("ServerListening"), cfg.Port)
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf(i18n.Get("APIServerError"), err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println(i18n.Get("ShuttingDown"))
}

// sweepCache drops expired programs once per ttl.
func sweepCache(ctx context.Context, c *cache.ProgramCache, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Cleanup(); n > 0 {
				log.Printf(i18n.Get("CacheCleanup"), n)
			}
		}
	}
}
