package cli

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/tokenrelay/relayd/internal/config"
	"github.com/tokenrelay/relayd/internal/core/event"
	"github.com/tokenrelay/relayd/internal/core/token"
	"github.com/tokenrelay/relayd/internal/rpc"
	"github.com/tokenrelay/relayd/internal/storage/database"
	"github.com/tokenrelay/relayd/internal/storage/database/leveldb"
	"github.com/tokenrelay/relayd/internal/storage/database/memory"
	"github.com/tokenrelay/relayd/internal/storage/database/pebble"
	"github.com/tokenrelay/relayd/internal/storage/ledgerstore"
	"github.com/tokenrelay/relayd/internal/storage/relationaldb/postgres"
)

// node bundles everything a command needs to run the relay: the opened
// database, the ledger store over it and the executor.
type node struct {
	cfg    *config.Config
	db     database.DB
	store  *ledgerstore.Store
	engine *event.Engine

	history *postgres.Client
}

// openNode opens storage and builds the executor from configuration.
// Extra engine options are appended after the config-derived ones.
func openNode(ctx context.Context, cfg *config.Config, opts ...event.Option) (*node, error) {
	db, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	store, err := ledgerstore.Open(ctx, db, cfg.Node.CacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening ledger store: %w", err)
	}

	n := &node{cfg: cfg, db: db, store: store}

	engineOpts := make([]event.Option, 0, len(opts)+2)
	if cfg.Node.Journal {
		engineOpts = append(engineOpts, event.WithJournal())
	}

	if cfg.History.Enabled {
		history, err := postgres.NewClient(postgres.Config{
			Host:     cfg.History.Host,
			Port:     cfg.History.Port,
			Database: cfg.History.Database,
			User:     cfg.History.User,
			Password: cfg.History.Password,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to history database: %w", err)
		}
		if err := history.EnsureSchema(ctx); err != nil {
			history.Close()
			db.Close()
			return nil, err
		}
		n.history = history
		engineOpts = append(engineOpts, event.WithAppliedHook(historyHook(history)))
	}
	engineOpts = append(engineOpts, opts...)

	engine, err := event.NewEngine(store, engineConfig(cfg), engineOpts...)
	if err != nil {
		n.Close()
		return nil, err
	}
	n.engine = engine

	return n, nil
}

func (n *node) Close() {
	if n.history != nil {
		n.history.Close()
	}
	if n.db != nil {
		n.db.Close()
	}
}

func openBackend(cfg *config.Config) (database.DB, error) {
	switch cfg.Node.Backend {
	case "pebble":
		manager := pebble.NewManager(cfg.Node.DataDir)
		db, err := manager.OpenDB("ledger")
		if err != nil {
			return nil, fmt.Errorf("opening pebble database: %w", err)
		}
		return db, nil
	case "leveldb":
		db, err := leveldb.Open(filepath.Join(cfg.Node.DataDir, "ledger"))
		if err != nil {
			return nil, fmt.Errorf("opening leveldb database: %w", err)
		}
		return db, nil
	case "memory":
		return memory.NewDB(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Node.Backend)
	}
}

func engineConfig(cfg *config.Config) event.Config {
	connectors := make([]event.ConnectorConfig, 0, len(cfg.Relay.Connectors))
	for _, cc := range cfg.Relay.Connectors {
		connectors = append(connectors, event.ConnectorConfig{
			Currency: token.Currency(cc.Currency),
			Issuer:   token.Account(cc.Issuer),
			Weight:   cc.Weight,
			Base:     cc.Base,
		})
	}
	return event.Config{
		RelayAccount:  token.Account(cfg.Relay.Account),
		RelayCurrency: token.Currency(cfg.Relay.Currency),
		Connectors:    connectors,
	}
}

// historyHook records applied events in the history database off the
// commit path; failures are logged, never propagated.
func historyHook(history *postgres.Client) event.AppliedFunc {
	return func(ev event.Event) {
		applied := rpc.NewAppliedEvent(ev)
		if applied == nil {
			return
		}
		rec := postgres.Record{
			Kind:     applied.Type,
			Currency: applied.Currency,
			From:     applied.From,
			To:       applied.To,
			Amount:   applied.Amount,
			Memo:     applied.Memo,
		}
		if err := history.Append(context.Background(), rec); err != nil {
			log.Printf("history append failed: %v", err)
		}
	}
}
