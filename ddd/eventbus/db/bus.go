//
// Copyright 2023 Bytedance Ltd. and/or its affiliates
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

package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-logr/logr"
	"github.com/robfig/cron"
	"gorm.io/gorm"

	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/logger/stdr"
)

const maxConsumerName = 30

var ErrNoPendingTx = fmt.Errorf("no pending transaction in context")
var ErrConsumerMissing = fmt.Errorf("consumer not registered")

type Config struct {
	Retry        RetryPolicy
	StartOffset  *int64        // where a new consumer starts, nil means at the latest event
	PollInterval time.Duration
	BatchSize    int
	Workers      int
	PurgeSpec    string        // robfig/cron spec with seconds
	Retention    time.Duration // consumed events are kept this long
	TxCheckAfter time.Duration // pending transactions older than this are resolved by the checker

	// TxDB returns the handle bound to ctx so outbox rows join the business
	// transaction, usually gormexec.Executor.DB.
	TxDB func(ctx context.Context) *gorm.DB
}

func defaultConfig() Config {
	return Config{
		Retry:        FixedBackoff(3*time.Second, 5),
		PollInterval: 100 * time.Millisecond,
		BatchSize:    100,
		Workers:      1,
		PurgeSpec:    "0 0 2 * * *",
		Retention:    48 * time.Hour,
		TxCheckAfter: time.Minute,
	}
}

type Option func(cfg *Config)

func WithTxDB(f func(ctx context.Context) *gorm.DB) Option {
	return func(cfg *Config) {
		cfg.TxDB = f
	}
}

func WithRetry(p RetryPolicy) Option {
	return func(cfg *Config) {
		cfg.Retry = p
	}
}

// WithStartOffset makes a new consumer read every event after offset.
func WithStartOffset(offset int64) Option {
	return func(cfg *Config) {
		cfg.StartOffset = &offset
	}
}

func WithWorkers(n int) Option {
	return func(cfg *Config) {
		cfg.Workers = n
	}
}

func WithRetention(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.Retention = d
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.PollInterval = d
	}
}

func WithTxCheckAfter(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.TxCheckAfter = d
	}
}

type ctxKind int

const (
	ctxDB ctxKind = iota
	ctxPending
)

type ctxKey struct {
	bus  *EventBus
	kind ctxKind
}

// EventBus is a transactional outbox. Dispatch writes events in the caller's
// transaction, a polling loop delivers them to the registered handler and
// records the read position of the named consumer.
type EventBus struct {
	name string
	db   *gorm.DB
	cfg  Config
	log  logr.Logger

	handler ddd.DomainEventHandler
	checker ddd.DomainEventTXChecker

	purger    *cron.Cron
	startOnce sync.Once
}

// NewEventBus binds a consumer named name to the outbox tables, see Tables.
// Wire it with ddd.NewEngine(lock, executor, bus.Options()...).
func NewEventBus(name string, db *gorm.DB, opts ...Option) *EventBus {
	if utf8.RuneCountInString(name) > maxConsumerName {
		panic(fmt.Sprintf("consumer name %q is longer than %d characters", name, maxConsumerName))
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if _, err := cron.Parse(cfg.PurgeSpec); err != nil {
		panic(fmt.Sprintf("invalid purge spec %q: %v", cfg.PurgeSpec, err))
	}
	if cfg.Retention < 0 {
		panic(fmt.Sprintf("negative retention %v", cfg.Retention))
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Retry == nil {
		cfg.Retry = Backoff{}
	}

	b := &EventBus{
		name:   name,
		db:     db,
		cfg:    cfg,
		log:    stdr.NewStdr("db_eventbus").WithValues("consumer", name),
		purger: cron.New(),
	}
	if err := b.register(); err != nil {
		b.log.Error(err, "register consumer failed")
	}
	return b
}

// Options makes the bus the engine's event bus and polls right after every
// save that emitted events.
func (b *EventBus) Options() []ddd.Option {
	return []ddd.Option{
		ddd.WithEventBus(b),
		ddd.WithPostSave(b.afterSave),
	}
}

func (b *EventBus) RegisterEventHandler(h ddd.DomainEventHandler) {
	b.handler = h
}

func (b *EventBus) RegisterEventTXChecker(c ddd.DomainEventTXChecker) {
	b.checker = c
}

func (b *EventBus) register() error {
	return b.db.Where(Consumer{Name: b.name}).FirstOrCreate(&Consumer{}).Error
}

// conn returns the handle to write outbox rows with: one pinned in ctx, else
// the business transaction, else the plain db.
func (b *EventBus) conn(ctx context.Context) *gorm.DB {
	if db, ok := ctx.Value(ctxKey{b, ctxDB}).(*gorm.DB); ok {
		return db
	}
	if b.cfg.TxDB != nil {
		return b.cfg.TxDB(ctx)
	}
	return b.db
}

// plainConn ignores the business transaction.
func (b *EventBus) plainConn(ctx context.Context) *gorm.DB {
	if db, ok := ctx.Value(ctxKey{b, ctxDB}).(*gorm.DB); ok {
		return db
	}
	return b.db
}

func (b *EventBus) pinConn(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, ctxKey{b, ctxDB}, db)
}

func (b *EventBus) pending(ctx context.Context) *PendingTx {
	tx, _ := ctx.Value(ctxKey{b, ctxPending}).(*PendingTx)
	return tx
}

func (b *EventBus) withPending(ctx context.Context, tx *PendingTx) context.Context {
	return context.WithValue(ctx, ctxKey{b, ctxPending}, tx)
}

// Dispatch appends events to the outbox.
func (b *EventBus) Dispatch(ctx context.Context, events ...*ddd.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	var pendingID int64
	if tx := b.pending(ctx); tx != nil {
		pendingID = tx.ID
	}
	rows := make([]*OutboxEvent, 0, len(events))
	for _, evt := range events {
		rows = append(rows, newOutboxEvent(evt, pendingID))
	}
	return b.conn(ctx).Create(rows).Error
}

func (b *EventBus) afterSave(ctx context.Context, res *ddd.Result) {
	if res.Error != nil || len(res.Events) == 0 || b.handler == nil {
		return
	}
	go func() {
		if err := b.consume(); err != nil {
			b.log.Error(err, "consume after save failed")
		}
	}()
}

func (b *EventBus) tick() {
	if err := b.resolvePending(); err != nil {
		b.log.Error(err, "resolve pending transactions failed")
	}
	if err := b.consume(); err != nil {
		if errors.Is(err, ErrConsumerMissing) {
			_ = b.register()
		}
		b.log.Error(err, "consume failed")
	}
}

// Start polls the outbox and schedules the purge job until ctx is done.
// Later calls do nothing.
func (b *EventBus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		if err := b.purger.AddFunc(b.cfg.PurgeSpec, func() {
			if err := b.purge(); err != nil {
				b.log.Error(err, "purge failed")
			}
		}); err != nil {
			panic(err)
		}
		b.purger.Start()

		go func() {
			ticker := time.NewTicker(b.cfg.PollInterval)
			defer ticker.Stop()
			defer b.purger.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					b.tick()
				}
			}
		}()
	})
}
