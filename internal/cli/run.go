package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/observability"
	"solana-mention-tracker/internal/storage"
)

type runFlags struct {
	postsFile string
	workers   int
	maxPosts  int
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch over stored posts: gate, extract, resolve, price",
		Long: `Run pages through posts in publish order. For each post the rebuild gate decides
whether mentions are recomputed; fresh ticker and phrase mentions are resolved to
contract addresses, and mentions with an address are priced at publish time.

Example:
  mentions run --config mentions.yaml
  mentions run --posts posts.json --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, g, f)
		},
	}
	cmd.Flags().StringVar(&f.postsFile, "posts", "", "JSON file of posts to load before the run")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent posts (overrides orchestrator.workers)")
	cmd.Flags().IntVar(&f.maxPosts, "max-posts", 0, "stop after this many posts (overrides orchestrator.max_posts)")
	return cmd
}

func runBatch(cmd *cobra.Command, g *globalFlags, f *runFlags) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if f.workers > 0 {
		cfg.Orchestrator.Workers = f.workers
	}
	if f.maxPosts > 0 {
		cfg.Orchestrator.MaxPosts = f.maxPosts
	}

	log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if f.postsFile != "" {
		n, err := importPosts(ctx, a.posts, f.postsFile)
		if err != nil {
			return err
		}
		log.WithField("posts", n).Info("loaded posts")
	}

	if cfg.Metrics.Addr != "" {
		srv := startMetricsServer(cfg.Metrics.Addr, log)
		defer shutdownServer(srv, log)
	}

	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	result, runErr := orch.Run(ctx)
	if result != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// postRecord is the JSON shape of an entry in a --posts file.
type postRecord struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
	Likes       int64     `json:"likes"`
	Reposts     int64     `json:"reposts"`
	Replies     int64     `json:"replies"`
}

// readPosts parses a JSON array of posts.
func readPosts(path string) ([]*domain.Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read posts file: %w", err)
	}
	var records []postRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse posts file %s: %w", path, err)
	}

	now := time.Now().UnixMilli()
	posts := make([]*domain.Post, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("posts file %s: entry %d has no id", path, i)
		}
		posts = append(posts, &domain.Post{
			ID:          r.ID,
			Author:      r.Author,
			Text:        r.Text,
			PublishedAt: r.PublishedAt.UnixMilli(),
			Likes:       r.Likes,
			Reposts:     r.Reposts,
			Replies:     r.Replies,
			CreatedAt:   now,
		})
	}
	return posts, nil
}

func importPosts(ctx context.Context, store storage.PostStore, path string) (int, error) {
	posts, err := readPosts(path)
	if err != nil {
		return 0, err
	}
	for _, p := range posts {
		if err := store.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("store post %s: %w", p.ID, err)
		}
	}
	return len(posts), nil
}

// startMetricsServer serves /health and /metrics in the background.
func startMetricsServer(addr string, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", addr).Info("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("metrics server shutdown")
	}
}
