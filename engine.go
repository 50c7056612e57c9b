// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reelbot

import (
	"errors"
	"log/slog"

	"github.com/poiesic/reelbot/bot"
	"github.com/poiesic/reelbot/broadcast"
	"github.com/poiesic/reelbot/config"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/escalation"
	"github.com/poiesic/reelbot/ingestion"
	"github.com/poiesic/reelbot/metrics"
	"github.com/poiesic/reelbot/relay"
	"github.com/poiesic/reelbot/search"
	"github.com/poiesic/reelbot/storage/badger"
	"github.com/poiesic/reelbot/transport"
)

// ErrTransportRequired is returned when NewEngine gets no transport.
var ErrTransportRequired = errors.New("transport is required")

// Engine wires storage and the indexing, resolution, relay, escalation
// and broadcast components behind one event handler.
type Engine struct {
	repos      *badger.Repositories
	ownsRepos  bool
	metrics    *metrics.Metrics
	fanout     *broadcast.Fanout
	relayer    *relay.Relayer
	escalation *escalation.Workflow
	resolver   *search.Resolver
	indexer    *ingestion.Indexer
	handler    *bot.Handler
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	repos   *badger.Repositories
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// WithRepositories uses already opened repositories instead of opening
// cfg.Storage.DataDir. The caller keeps ownership of them.
func WithRepositories(repos *badger.Repositories) EngineOption {
	return func(o *engineOptions) {
		o.repos = repos
	}
}

// WithMetrics records engine activity in m.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(o *engineOptions) {
		o.metrics = m
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine validates the engine settings of cfg and builds every component
// on top of tr.
func NewEngine(cfg *config.Config, tr transport.Transport, opts ...EngineOption) (*Engine, error) {
	if tr == nil {
		return nil, ErrTransportRequired
	}
	if err := cfg.ValidateEngine(); err != nil {
		return nil, err
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	e := &Engine{
		repos:   options.repos,
		metrics: options.metrics,
		logger:  options.logger,
	}
	if e.repos == nil {
		repos, err := badger.OpenRepositories(cfg.Storage.DataDir, false)
		if err != nil {
			return nil, err
		}
		e.repos = repos
		e.ownsRepos = true
	}

	if err := e.build(cfg, tr); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) build(cfg *config.Config, tr transport.Transport) error {
	source := core.ChatID(cfg.Telegram.SourceChannel)
	operators := make([]core.UserID, 0, len(cfg.Telegram.OperatorIDs))
	for _, id := range cfg.Telegram.OperatorIDs {
		operators = append(operators, core.UserID(id))
	}

	var err error
	e.fanout, err = broadcast.New(tr,
		broadcast.WithWorkers(cfg.Broadcast.Workers),
		broadcast.WithDeliveryTimeout(cfg.Broadcast.DeliveryTimeout),
		broadcast.WithMetrics(e.metrics),
		broadcast.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}

	e.relayer, err = relay.New(tr, source,
		relay.WithRetractionDelay(cfg.Relay.RetractionDelay),
		relay.WithWorkers(cfg.Relay.Workers),
		relay.WithMetrics(e.metrics),
		relay.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}

	e.escalation, err = escalation.New(e.repos.Escalations, e.fanout, tr, operators,
		escalation.WithMetrics(e.metrics),
		escalation.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}

	e.resolver, err = search.NewResolver(e.repos.Catalog, e.repos.Users, e.escalation,
		search.WithResultLimit(cfg.Search.ResultLimit),
		search.WithMetrics(e.metrics),
		search.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}

	e.indexer, err = ingestion.NewIndexer(e.repos.Catalog, e.repos.Users, e.repos.Settings, e.fanout,
		ingestion.WithExcerptLength(cfg.Broadcast.ExcerptLength),
		ingestion.WithMetrics(e.metrics),
		ingestion.WithLogger(e.logger),
	)
	if err != nil {
		return err
	}

	e.handler, err = bot.New(bot.Deps{
		Transport:   tr,
		Indexer:     e.indexer,
		Resolver:    e.resolver,
		Relayer:     e.relayer,
		Escalation:  e.escalation,
		Fanout:      e.fanout,
		Catalog:     e.repos.Catalog,
		Users:       e.repos.Users,
		Escalations: e.repos.Escalations,
		Settings:    e.repos.Settings,
		Feedback:    e.repos.Feedback,
	}, source, operators,
		bot.WithMatchMode(cfg.Search.MatchMode),
		bot.WithRelayInterval(cfg.Search.RelayInterval),
		bot.WithStartScreen(cfg.Start),
		bot.WithMetrics(e.metrics),
		bot.WithLogger(e.logger),
	)
	return err
}

// Close waits for queued announcements, stops the worker pools and closes
// storage when the engine opened it. Pending retractions are dropped.
func (e *Engine) Close() error {
	if e.indexer != nil {
		e.indexer.Wait()
		e.indexer.Release()
	}
	if e.relayer != nil {
		if n := e.relayer.Pending(); n > 0 {
			e.logger.Warn("dropping pending retractions", "count", n)
		}
		e.relayer.Release()
	}
	if e.fanout != nil {
		e.fanout.Release()
	}
	if !e.ownsRepos {
		return nil
	}
	if err := e.repos.Close(); err != nil {
		e.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

// Handler returns the event handler to run a transport with.
func (e *Engine) Handler() *bot.Handler {
	return e.handler
}

func (e *Engine) Repositories() *badger.Repositories {
	return e.repos
}

func (e *Engine) Resolver() *search.Resolver {
	return e.resolver
}

func (e *Engine) Indexer() *ingestion.Indexer {
	return e.indexer
}

func (e *Engine) Relayer() *relay.Relayer {
	return e.relayer
}

func (e *Engine) Escalation() *escalation.Workflow {
	return e.escalation
}

func (e *Engine) Fanout() *broadcast.Fanout {
	return e.fanout
}
