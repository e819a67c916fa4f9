package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/transparent-search/crawlcore/internal/cache"
	"github.com/transparent-search/crawlcore/internal/config"
	"github.com/transparent-search/crawlcore/internal/crawler"
	"github.com/transparent-search/crawlcore/internal/events"
	"github.com/transparent-search/crawlcore/internal/httpapi"
	"github.com/transparent-search/crawlcore/internal/indexer"
	"github.com/transparent-search/crawlcore/internal/scheduler"
	"github.com/transparent-search/crawlcore/internal/store"
	"github.com/transparent-search/crawlcore/internal/workerpool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the full crawl/index daemon (scheduler, worker pool, indexer, HTTP API)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer st.Close(context.Background())

	var crawlCache cache.Cache
	if redisCache, err := cache.NewRedis(redisURLFromConfig(cfg)); err != nil {
		log.Warn().Err(err).Msg("crawlerd: redis cache unavailable, continuing without it")
	} else {
		crawlCache = redisCache
	}

	var bus *events.Bus
	if cfg.AMQP.URL != "" {
		bus, err = events.Connect(cfg.AMQP.URL)
		if err != nil {
			log.Warn().Err(err).Msg("crawlerd: rabbitmq event bus unavailable, continuing without live updates")
		} else {
			defer bus.Close()
		}
	}

	flags := scheduler.NewFlags()
	ix := indexer.New(st)

	pipeline := crawler.New(st, crawlCache, crawler.WithEvents(bus))
	pool := workerpool.New(st, pipeline,
		workerpool.WithConcurrency(cfg.Worker.Concurrency),
		workerpool.WithPollInterval(cfg.Worker.PollInterval),
		workerpool.WithShutdownGrace(cfg.Worker.ShutdownGrace),
		workerpool.WithEvents(bus),
		workerpool.WithIndexer(ix),
		workerpool.WithIndexGate(flags),
	)

	sites := make([]scheduler.Site, 0, len(cfg.Sites))
	for _, s := range cfg.Sites {
		sites = append(sites, scheduler.Site{
			Domain: s.Domain, MaxDepth: s.MaxDepth, PageLimit: s.PageLimit, EnableJSRendering: s.EnableJSRendering,
		})
	}
	sched := scheduler.New(st, sites, pool, flags)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	api := httpapi.New(st, ix, flags, bus, cfg.Admin.Token)

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("crawlerd: http api listening")
		if err := api.Serve(cfg.HTTP.Addr); err != nil {
			log.Error().Err(err).Msg("crawlerd: http api stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("crawlerd: shutting down")
	sched.Stop()
	cancel()
	return nil
}

func redisURLFromConfig(cfg *config.Config) string {
	u := url.URL{Scheme: "redis", Host: cfg.Redis.Addr, Path: fmt.Sprintf("/%d", cfg.Redis.DB)}
	if cfg.Redis.Password != "" {
		u.User = url.UserPassword("", cfg.Redis.Password)
	}
	return u.String()
}
