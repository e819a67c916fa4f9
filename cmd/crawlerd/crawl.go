package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/transparent-search/crawlcore/internal/cache"
	"github.com/transparent-search/crawlcore/internal/config"
	"github.com/transparent-search/crawlcore/internal/crawler"
	"github.com/transparent-search/crawlcore/internal/indexer"
	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/store"
	"github.com/transparent-search/crawlcore/internal/workerpool"
)

var (
	crawlDepth     int
	crawlPageLimit int
	crawlReindex   bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Run a single crawl session against one seed URL and exit",
	Long: `crawl starts one Session for the seed URL's host, seeds a single root
Job, drains the worker pool until the session is idle, and optionally
reindexes everything it crawled -- the teacher's original one-shot CLI mode,
restructured onto the daemon's own Store/Pipeline/Pool.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().IntVar(&crawlDepth, "depth", 2, "maximum link depth to follow")
	crawlCmd.Flags().IntVar(&crawlPageLimit, "page-limit", 100, "page limit recorded on the session (the crawl does not stop at it)")
	crawlCmd.Flags().BoolVar(&crawlReindex, "reindex", true, "run the quality-gate indexer over crawled pages before exiting")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	seedURL := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	st, err := store.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer st.Close(context.Background())

	var crawlCache cache.Cache
	if redisCache, err := cache.NewRedis(redisURLFromConfig(cfg)); err == nil {
		crawlCache = redisCache
	}

	host, err := hostOf(seedURL)
	if err != nil {
		return fmt.Errorf("parse seed url: %w", err)
	}

	sessionID, err := st.CreateSession(ctx, &model.Session{
		Domain: host, Status: model.SessionRunning,
		MaxDepth: crawlDepth, PageLimit: crawlPageLimit, CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	if _, err := st.CreateJob(ctx, &model.Job{
		SessionID: sessionID, Domain: host, URL: seedURL,
		Status: model.JobPending, Priority: 1, MaxDepth: crawlDepth, CreatedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("seed job: %w", err)
	}

	pipeline := crawler.New(st, crawlCache)
	pool := workerpool.New(st, pipeline, workerpool.WithConcurrency(cfg.Worker.Concurrency))

	runCtx, runCancel := context.WithCancel(ctx)
	go pool.Run(runCtx)
	waitForSessionIdle(ctx, st, sessionID)
	runCancel()
	pool.Stop()

	if err := st.CompleteSession(ctx, sessionID); err != nil {
		log.Warn().Err(err).Msg("crawl: failed to mark session complete")
	}

	if crawlReindex {
		ix := indexer.New(st)
		result, err := ix.ReindexSession(ctx, sessionID, true)
		if err != nil {
			return fmt.Errorf("reindex session: %w", err)
		}
		fmt.Printf("indexed=%d rejected=%d skipped=%d mean_quality=%.2f median_quality=%.2f\n",
			result.Indexed, result.Rejected, result.Skipped, result.MeanQualityScore, result.MedianQualityScore)
	}

	fmt.Printf("session %s complete for %s\n", sessionID, host)
	return nil
}

// waitForSessionIdle polls ListJobsBySession every 2s until no Job of the
// session is left pending or processing, or ctx is done.
func waitForSessionIdle(ctx context.Context, st store.Store, sessionID string) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobs, err := st.ListJobsBySession(ctx, sessionID)
			if err != nil {
				continue
			}
			active := false
			for _, j := range jobs {
				if j.Status == model.JobPending || j.Status == model.JobProcessing {
					active = true
					break
				}
			}
			if !active {
				return
			}
		}
	}
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid url %q", rawURL)
	}
	return u.Hostname(), nil
}
