package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-mention-tracker/internal/config"
	"solana-mention-tracker/internal/extract"
	"solana-mention-tracker/internal/gateway"
	"solana-mention-tracker/internal/market"
	"solana-mention-tracker/internal/orchestrator"
	"solana-mention-tracker/internal/pricing"
	"solana-mention-tracker/internal/rebuild"
	"solana-mention-tracker/internal/resolver"
	"solana-mention-tracker/internal/storage"
	chstore "solana-mention-tracker/internal/storage/clickhouse"
	"solana-mention-tracker/internal/storage/memory"
	pgstore "solana-mention-tracker/internal/storage/postgres"
)

// app holds the stores and shared services of one command invocation.
type app struct {
	cfg *config.Config
	log *logrus.Logger

	posts      storage.PostStore
	mentions   storage.MentionStore
	kb         storage.KnowledgeBaseStore
	unresolved storage.UnresolvedStore
	snapshots  storage.PriceSnapshotStore

	pool *pgstore.Pool
	ch   *chstore.Conn

	gw     *gateway.Gateway
	market *market.Client
}

// openApp connects the configured stores. Without a Postgres DSN every store is in memory;
// without a ClickHouse DSN price snapshots stay in memory.
func openApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if cfg.Postgres.DSN == "" {
		log.Warn("postgres.dsn not set, using in-memory stores")
		a.posts = memory.NewPostStore()
		a.mentions = memory.NewMentionStore()
		a.kb = memory.NewKnowledgeBaseStore()
		a.unresolved = memory.NewUnresolvedStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.posts = pgstore.NewPostStore(pool)
		a.mentions = pgstore.NewMentionStore(pool)
		a.kb = pgstore.NewKnowledgeBaseStore(pool)
		a.unresolved = pgstore.NewUnresolvedStore(pool)
	}

	if cfg.ClickHouse.DSN == "" {
		a.snapshots = memory.NewPriceSnapshotStore()
	} else {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.ch = conn
		a.snapshots = chstore.NewPriceSnapshotStore(conn)
	}

	a.gw = gateway.New(cfg.Gateway.ClientConfig(), gateway.WithLogger(log))
	a.market = market.NewClient(a.gw, cfg.Market.BaseURL, log)
	return a, nil
}

// Close releases database connections.
func (a *app) Close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.log.WithError(err).Warn("close clickhouse")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *app) extractor() *extract.Extractor {
	return extract.New(extract.Options{Stopwords: a.cfg.Extract.Stopwords})
}

func (a *app) resolver() *resolver.Resolver {
	rc := a.cfg.Resolver
	return resolver.New(resolver.Options{
		KnowledgeBase:        a.kb,
		Searcher:             a.market,
		Networks:             rc.Networks,
		Blocklist:            rc.Blocklist,
		Strict:               rc.Strict,
		ExternalPhraseSearch: rc.ExternalPhraseSearch,
		MinPhraseLength:      rc.MinPhraseLength,
		Logger:               a.log,
	})
}

func (a *app) pricer() *pricing.Engine {
	pc := a.cfg.Pricing
	return pricing.New(pricing.Options{
		Market:         a.market,
		Mentions:       a.mentions,
		Snapshots:      a.snapshots,
		Network:        pc.Network,
		PoolCandidates: pc.PoolCandidates,
		GracePeriod:    pc.GracePeriod,
		Logger:         a.log,
	})
}

func (a *app) orchestrator() (*orchestrator.Orchestrator, error) {
	oc := a.cfg.Orchestrator
	rebuilder := rebuild.New(rebuild.Options{
		Mentions:  a.mentions,
		Extractor: a.extractor(),
		Threshold: a.cfg.Rebuild.Threshold,
		Logger:    a.log,
	})
	orch, err := orchestrator.New(orchestrator.Options{
		Posts:              a.posts,
		Mentions:           a.mentions,
		Unresolved:         a.unresolved,
		Rebuilder:          rebuilder,
		Resolver:           a.resolver(),
		Pricer:             a.pricer(),
		Workers:            oc.Workers,
		BatchSize:          oc.BatchSize,
		MaxPosts:           oc.MaxPosts,
		ResolvedConfidence: rebuilder.Threshold() + 1,
		Logger:             a.log,
	})
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	return orch, nil
}
