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
	"github.com/go-logr/logr"
)

// Options configure an Engine. A Stage starts from a copy of the engine's
// Options and may override them per run.
type Options struct {
	Locker      ILock
	Executor    IExecutor
	EventBus    IEventBus
	IDGenerator IIDGenerator
	Logger      logr.Logger

	WithTransaction bool
	RecursiveDelete bool // removing an entity removes its descendants too
	DryRun          bool // ids are assigned but nothing is written or dispatched

	EventPersist  EventPersist // when set, events are also stored through the executor
	PostSaveHooks []PostSaveFunc
}

type Option interface {
	apply(opts *Options)
}

type optionFunc func(opts *Options)

func (f optionFunc) apply(opts *Options) {
	f(opts)
}

type switchField int

const (
	fieldTransaction switchField = iota
	fieldRecursiveDelete
	fieldDryRun
)

type toggle struct {
	field switchField
	on    bool
}

func (t toggle) apply(opts *Options) {
	switch t.field {
	case fieldTransaction:
		opts.WithTransaction = t.on
	case fieldRecursiveDelete:
		opts.RecursiveDelete = t.on
	case fieldDryRun:
		opts.DryRun = t.on
	}
}

var (
	WithTransaction     Option = toggle{fieldTransaction, true}
	WithoutTransaction  Option = toggle{fieldTransaction, false}
	WithRecursiveDelete Option = toggle{fieldRecursiveDelete, true}
	WithDryRun          Option = toggle{fieldDryRun, true}
)

func WithLogger(logger logr.Logger) Option {
	return optionFunc(func(opts *Options) { opts.Logger = logger })
}

func WithLock(lock ILock) Option {
	return optionFunc(func(opts *Options) { opts.Locker = lock })
}

func WithExecutor(executor IExecutor) Option {
	return optionFunc(func(opts *Options) { opts.Executor = executor })
}

func WithEventBus(eventBus IEventBus) Option {
	return optionFunc(func(opts *Options) { opts.EventBus = eventBus })
}

// EventPersist converts an event to the model stored next to the entities.
type EventPersist func(event *DomainEvent) (IModel, error)

func WithEventPersist(f EventPersist) Option {
	return optionFunc(func(opts *Options) { opts.EventPersist = f })
}

func WithIDGenerator(idGen IIDGenerator) Option {
	return optionFunc(func(opts *Options) { opts.IDGenerator = idGen })
}

// WithPostSave appends a hook run after every save, successful or not.
func WithPostSave(f PostSaveFunc) Option {
	return optionFunc(func(opts *Options) { opts.PostSaveHooks = append(opts.PostSaveHooks, f) })
}
