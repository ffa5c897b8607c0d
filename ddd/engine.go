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
	"reflect"

	"github.com/go-logr/logr"
	"github.com/rs/xid"

	"github.com/salesrecord/salesapi/logger/stdr"
)

var defaultLogger = stdr.NewStdr("ddd_engine")

// ILock serializes commands touching the same aggregate. Lock must fail
// rather than wait forever.
type ILock interface {
	Lock(ctx context.Context, key string) (keyLock interface{}, err error)
	UnLock(ctx context.Context, keyLock interface{}) error
}

type IIDGenerator interface {
	NewID() (string, error)
}

type xidGenerator struct{}

func (xidGenerator) NewID() (string, error) {
	return xid.New().String(), nil
}

// Engine runs commands. It is safe for concurrent use, every run gets its own
// Stage.
type Engine struct {
	options Options
	logger  logr.Logger
}

// NewEngine builds an engine persisting through e and locking through l. Runs
// are transactional unless WithoutTransaction is given. The event bus, if
// any, is connected to the global handlers.
func NewEngine(l ILock, e IExecutor, opts ...Option) *Engine {
	options := Options{
		Locker:          l,
		Executor:        e,
		EventBus:        noEventBus{},
		IDGenerator:     xidGenerator{},
		Logger:          defaultLogger,
		WithTransaction: true,
	}
	for _, opt := range opts {
		opt.apply(&options)
	}
	RegisterEventBus(options.EventBus)
	return &Engine{options: options, logger: options.Logger}
}

func (e *Engine) NewStage() *Stage {
	options := e.options
	options.PostSaveHooks = append([]PostSaveFunc(nil), e.options.PostSaveHooks...)
	return &Stage{
		options:  options,
		logger:   options.Logger,
		meta:     &EntityContainer{},
		snapshot: snapshotPool{},
		result:   &Result{},
	}
}

// Create inserts the given roots and their children.
func (e *Engine) Create(ctx context.Context, roots ...IEntity) *Result {
	return e.Run(ctx, MainFunc(func(ctx context.Context, repo *Repository) error {
		repo.Add(roots...)
		return nil
	}))
}

// Delete removes the given roots.
func (e *Engine) Delete(ctx context.Context, roots ...IEntity) *Result {
	return e.Run(ctx, MainFunc(func(ctx context.Context, repo *Repository) error {
		repo.Remove(roots...)
		return nil
	}))
}

// Run executes a command, either an ICommandMain (optionally ICommandInit and
// ICommandPostSave) or a MainFunc. opts apply to this run only.
func (e *Engine) Run(ctx context.Context, c interface{}, opts ...Option) *Result {
	return e.NewStage().WithOption(opts...).Run(ctx, c)
}

// RegisterEventHandler runs, for every event of eventType, the command that
// construct builds from it. See EventHandlerConstruct.
func (e *Engine) RegisterEventHandler(eventType EventType, construct EventHandlerConstruct) {
	f := reflect.TypeOf(construct)
	if f == nil || f.Kind() != reflect.Func {
		panic(fmt.Sprintf("construct of %s must be a func, got %T", eventType, construct))
	}
	if f.NumIn() != 1 || f.NumOut() != 1 {
		panic(fmt.Sprintf("construct of %s must take one event and return one command", eventType))
	}
	h := &eventHandler{f: reflect.ValueOf(construct), eventType: eventArg(f, 0)}

	RegisterEventHandler(eventType, func(ctx context.Context, evt *DomainEvent) error {
		arg, err := decodeEvent(h, evt)
		if err != nil {
			e.logger.Error(err, "decode event failed", "type", evt.Type, "id", evt.ID)
			return err
		}
		cmd := h.f.Call([]reflect.Value{arg})[0].Interface()
		res := e.Run(ctx, cmd)
		if res.Error != nil {
			e.logger.Error(res.Error, "event command failed", "type", evt.Type, "id", evt.ID)
		}
		return res.Error
	})
}
