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

package mem

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/logger/stdr"
)

// EventBus delivers events to the registered handler from a single
// goroutine, in dispatch order. Undelivered events are lost on exit.
type EventBus struct {
	ch     chan *ddd.DomainEvent
	cb     ddd.DomainEventHandler
	logger logr.Logger

	once sync.Once
	wg   sync.WaitGroup
}

func NewEventBus(capacity int) *EventBus {
	return &EventBus{
		ch:     make(chan *ddd.DomainEvent, capacity),
		logger: stdr.NewStdr("mem_eventbus"),
	}
}

func (e *EventBus) Dispatch(ctx context.Context, evts ...*ddd.DomainEvent) error {
	for _, evt := range evts {
		select {
		case e.ch <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (e *EventBus) RegisterEventHandler(cb ddd.DomainEventHandler) {
	e.cb = cb
}

// Start consumes events until ctx is done. Calling it again is a no-op.
func (e *EventBus) Start(ctx context.Context) {
	run := func() {
		defer e.wg.Done()
		for {
			select {
			case evt := <-e.ch:
				if e.cb == nil {
					continue
				}
				if err := e.cb(ctx, evt); err != nil {
					e.logger.Error(err, "handle event failed", "id", evt.ID, "type", evt.Type)
				}
			case <-ctx.Done():
				return
			}
		}
	}
	e.once.Do(func() {
		e.wg.Add(1)
		go run()
	})
}

// Wait blocks until the consumer started by Start has returned.
func (e *EventBus) Wait() {
	e.wg.Wait()
}
