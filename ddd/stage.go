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

package ddd

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
)

const lockKeyPrefix = "ddd_engine_"

// Stage is one run of the engine: lock, transaction, command body,
// persistence and event dispatch. A Stage is used once.
type Stage struct {
	lockKeys []string
	main     MainFunc

	options Options
	logger  logr.Logger

	meta     *EntityContainer
	snapshot snapshotPool
	result   *Result
	eventCtx context.Context // returned by DispatchBegin of a transactional bus
}

// WithOption overrides the engine options for this stage. A changed event bus
// is connected to the global handlers.
func (e *Stage) WithOption(opts ...Option) *Stage {
	bus := e.options.EventBus
	for _, opt := range opts {
		opt.apply(&e.options)
	}
	if e.options.EventBus != bus {
		RegisterEventBus(e.options.EventBus)
	}
	e.logger = e.options.Logger
	return e
}

func (e *Stage) Lock(keys ...string) *Stage {
	e.lockKeys = keys
	return e
}

func (e *Stage) Main(f MainFunc) *Stage {
	e.main = f
	return e
}

// Run executes cmd, see Engine.Run.
func (e *Stage) Run(ctx context.Context, cmd interface{}) *Result {
	switch c := cmd.(type) {
	case ICommandMain:
		if ci, ok := cmd.(ICommandInit); ok {
			keys, err := ci.Init(ctx)
			if err != nil {
				return ResultErrOrBreak(err)
			}
			e.Lock(keys...)
		}
		if post, ok := cmd.(ICommandPostSave); ok {
			e.WithOption(WithPostSave(post.PostSave))
		}
		return e.Main(c.Main).Save(ctx)
	case MainFunc:
		return e.Main(c).Save(ctx)
	case func(ctx context.Context, repo *Repository) error:
		return e.Main(c).Save(ctx)
	}
	panic(fmt.Sprintf("cannot run %T, it is neither an ICommandMain nor a MainFunc", cmd))
}

// Save runs the stage and then the post save hooks, which see the result
// whatever it is.
func (e *Stage) Save(ctx context.Context) *Result {
	run := e.do
	if e.options.WithTransaction {
		run = e.inTransaction(run)
	}
	if len(e.lockKeys) > 0 {
		run = e.underLock(run, e.lockKeys)
	}

	res := run(ctx)
	for _, hook := range e.options.PostSaveHooks {
		hook(ctx, res)
	}
	return res
}

type runFunc func(ctx context.Context) *Result

// do is the body of the stage, inside the lock and the transaction.
func (e *Stage) do(ctx context.Context) *Result {
	if e.main != nil {
		repo := &Repository{stage: e}
		if err := e.main(ctx, repo); err != nil {
			return ResultErrOrBreak(err)
		}
		if err := repo.err(); err != nil {
			return ResultError(err)
		}
	}
	if err := e.persist(ctx); err != nil {
		return ResultErrors(err)
	}

	events := e.drainEvents()
	if len(events) == 0 {
		return e.result
	}
	if e.options.EventPersist != nil {
		if err := e.persistEvents(ctx, events); err != nil {
			return ResultErrors(err)
		}
	}
	if e.options.EventBus == nil {
		return ResultErrors(ErrNoEventBusFound)
	}
	if err := e.dispatchEvents(ctx, events); err != nil {
		return ResultErrors(err)
	}
	e.result.Events = events
	return e.result
}

// drainEvents empties the event logs of every entity in the stage, deleted
// ones included, and returns the events once each in emission order.
func (e *Stage) drainEvents() []*DomainEvent {
	seen := make(map[string]bool)
	res := make([]*DomainEvent, 0)
	collect := func(entity, parent IEntity, children map[string][]IEntity) error {
		for _, evt := range entity.DrainEvents() {
			if seen[evt.ID] {
				continue
			}
			seen[evt.ID] = true
			res = append(res, evt)
		}
		return nil
	}
	_ = walk(e.meta, nil, collect)
	for _, gone := range e.meta.GetDeleted() {
		_ = walk(gone, nil, collect)
	}
	sortEvents(res)
	return res
}

func (e *Stage) persistEvents(ctx context.Context, events []*DomainEvent) error {
	models := make([]IModel, 0, len(events))
	for _, evt := range events {
		m, err := e.options.EventPersist(evt)
		if err != nil {
			return err
		}
		models = append(models, m)
	}
	return e.exec(ctx, []*Action{{Op: OpInsert, Models: models}})
}

// dispatchEvents hands events to the bus. On a transactional bus inside a
// transaction, SendTypeTransaction events are only parked here and released
// when the transaction ends.
func (e *Stage) dispatchEvents(ctx context.Context, events []*DomainEvent) error {
	if e.options.DryRun {
		return nil
	}
	txBus, ok := e.options.EventBus.(ITransactionEventBus)
	if !ok || !e.options.WithTransaction {
		return e.options.EventBus.Dispatch(ctx, events...)
	}

	var normal, parked []*DomainEvent
	for _, evt := range events {
		if evt.SendType == SendTypeTransaction {
			parked = append(parked, evt)
		} else {
			normal = append(normal, evt)
		}
	}
	if len(parked) > 0 {
		eventCtx, err := txBus.DispatchBegin(ctx, parked...)
		if err != nil {
			return err
		}
		e.eventCtx = eventCtx
	}
	if len(normal) == 0 {
		return nil
	}
	return txBus.Dispatch(ctx, normal...)
}

// underLock takes every key, sorted, before running f and releases them
// after. Repeated keys are an error.
func (e *Stage) underLock(f runFunc, keys []string) runFunc {
	return func(ctx context.Context) *Result {
		sorted := append([]string(nil), keys...)
		sort.Strings(sorted)
		for i := 1; i < len(sorted); i++ {
			if sorted[i] == sorted[i-1] {
				return ResultErrors(fmt.Errorf("lock key %s repeated", sorted[i]))
			}
		}
		if e.options.Locker == nil {
			return ResultErrors(fmt.Errorf("no locker configured for keys %v", sorted))
		}

		held := make([]interface{}, 0, len(sorted))
		defer func() {
			for _, l := range held {
				if err := e.options.Locker.UnLock(ctx, l); err != nil {
					e.logger.Error(err, "unlock failed")
				}
			}
		}()
		for _, key := range sorted {
			l, err := e.options.Locker.Lock(ctx, lockKeyPrefix+key)
			if err != nil {
				return ResultErrors(fmt.Errorf("lock %s: %w", key, err))
			}
			held = append(held, l)
		}
		return f(ctx)
	}
}

// inTransaction runs f in an executor transaction and settles the parked
// events of a transactional bus the same way.
func (e *Stage) inTransaction(f runFunc) runFunc {
	return func(ctx context.Context) *Result {
		executor := e.options.Executor
		txCtx, err := executor.Begin(ctx)
		if err != nil {
			return ResultErrors(err)
		}
		defer func() {
			if r := recover(); r != nil {
				if err := executor.RollBack(txCtx); err != nil {
					e.logger.Error(err, "rollback after panic failed")
				}
				panic(r)
			}
		}()

		txBus, _ := e.options.EventBus.(ITransactionEventBus)
		res := f(txCtx)
		if res.Error != nil || res.Break {
			if err := executor.RollBack(txCtx); err != nil {
				e.logger.Error(err, "rollback failed")
			}
			if txBus != nil && e.eventCtx != nil {
				if err := txBus.Rollback(e.eventCtx); err != nil {
					e.logger.Error(err, "event rollback failed")
				}
			}
			return res
		}

		if err := executor.Commit(txCtx); err != nil {
			// parked events are left to the bus check-back
			e.logger.Error(err, "commit failed")
			res.Error = err
			return res
		}
		if txBus != nil && e.eventCtx != nil {
			if err := txBus.Commit(e.eventCtx); err != nil {
				e.logger.Error(err, "event commit failed")
			}
		}
		return res
	}
}
