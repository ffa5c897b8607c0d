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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/salesrecord/salesapi/biz/sale/application/event_handler"
	"github.com/salesrecord/salesapi/biz/sale/application/query"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/database"
	"github.com/salesrecord/salesapi/config"
	"github.com/salesrecord/salesapi/ddd"
	db_eventbus "github.com/salesrecord/salesapi/ddd/eventbus/db"
	kafka_eventbus "github.com/salesrecord/salesapi/ddd/eventbus/kafka"
	mem_eventbus "github.com/salesrecord/salesapi/ddd/eventbus/mem"
	"github.com/salesrecord/salesapi/ddd/executor/gormexec"
	db_lock "github.com/salesrecord/salesapi/ddd/lock/db"
	redis_lock "github.com/salesrecord/salesapi/ddd/lock/redis"
	"github.com/salesrecord/salesapi/handler"
	"github.com/salesrecord/salesapi/logger/stdr"
	"github.com/salesrecord/salesapi/metrics"
	"github.com/salesrecord/salesapi/testsuit"
)

var logger = stdr.NewStdr("salesapi")

func main() {
	configPath := flag.String("config", os.Getenv("SALES_CONFIG"), "path of the yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error(err, "load config failed")
		os.Exit(1)
	}
	stdr.SetVerbosity(cfg.Log.Verbosity)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		logger.Error(err, "server stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Debug)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	infrastructure.Init()
	query.Init(db)

	executor := gormexec.NewExecutor(db)
	lock, err := newLock(cfg, db)
	if err != nil {
		return err
	}
	busOpts, startBus, err := newEventBus(cfg, db, executor)
	if err != nil {
		return err
	}

	opts := append([]ddd.Option{ddd.WithIDGenerator(infrastructure.UUIDGenerator{})}, busOpts...)
	engine := ddd.NewEngine(lock, executor, opts...)

	var m *metrics.Metrics
	var recorder event_handler.Recorder
	if cfg.Metrics.Enabled {
		m = metrics.New()
		recorder = m
	}
	// The handlers only log, they run outside a transaction so a single
	// connection database is not needed twice while the db bus consumes.
	event_handler.Register(ddd.NewEngine(lock, executor, ddd.WithoutTransaction), recorder)
	if err := startBus(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handler.NewRouter(handler.NewSaleService(engine, m), m),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLock(cfg *config.Config, db *gorm.DB) (ddd.ILock, error) {
	switch cfg.Lock.Type {
	case "db":
		return db_lock.NewDBLock(db, cfg.Lock.TTL), nil
	case "redis":
		cli := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redis_lock.NewRedisLock(cli, cfg.Lock.TTL), nil
	case "mem":
		return testsuit.NewMemLock(), nil
	default:
		return nil, fmt.Errorf("unknown lock type %q", cfg.Lock.Type)
	}
}

type startFunc func(ctx context.Context) error

func newEventBus(cfg *config.Config, db *gorm.DB, executor *gormexec.Executor) ([]ddd.Option, startFunc, error) {
	switch cfg.EventBus.Type {
	case "mem":
		bus := mem_eventbus.NewEventBus(cfg.EventBus.Capacity)
		return []ddd.Option{ddd.WithEventBus(bus)}, func(ctx context.Context) error {
			bus.Start(ctx)
			return nil
		}, nil
	case "db":
		bus := db_eventbus.NewEventBus(cfg.EventBus.Service, db, db_eventbus.WithTxDB(executor.DB))
		return bus.Options(), func(ctx context.Context) error {
			bus.Start(ctx)
			return nil
		}, nil
	case "kafka":
		bus := kafka_eventbus.NewEventBus(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		return []ddd.Option{ddd.WithEventBus(bus)}, func(ctx context.Context) error {
			go func() {
				if err := bus.Start(ctx); err != nil {
					logger.Error(err, "kafka consumer stopped")
				}
				if err := bus.Close(); err != nil {
					logger.Error(err, "close kafka event bus failed")
				}
			}()
			return nil
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown event bus type %q", cfg.EventBus.Type)
	}
}
