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

package event_handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	sale_event "github.com/salesrecord/salesapi/common/domain_event/sale"
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/ddd/eventbus/mem"
)

type chanRecorder chan string

func (c chanRecorder) RecordEventHandled(eventType string) {
	c <- eventType
}

type nopExecutor struct{}

func (f *nopExecutor) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (f *nopExecutor) Commit(ctx context.Context) error                   { return nil }
func (f *nopExecutor) RollBack(ctx context.Context) error                 { return nil }
func (f *nopExecutor) Entity2Model(entity, parent ddd.IEntity, op ddd.OpType) (ddd.IModel, error) {
	return entity, nil
}
func (f *nopExecutor) Model2Entity(model ddd.IModel, entity ddd.IEntity) error { return nil }
func (f *nopExecutor) Exec(ctx context.Context, action *ddd.Action) error     { return nil }

func TestRegister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := mem.NewEventBus(10)
	engine := ddd.NewEngine(nil, &nopExecutor{}, ddd.WithEventBus(bus))
	rec := make(chanRecorder, 10)
	Register(engine, rec)
	bus.Start(ctx)

	s := &sale.Sale{ID: "s1", SaleNumber: 7}
	item := &sale.SaleItem{ID: "i1", ProductID: "p1"}
	assert.NoError(t, bus.Dispatch(ctx,
		ddd.NewDomainEvent(sale_event.NewSaleCreatedEvent(s)),
		ddd.NewDomainEvent(sale_event.NewSaleModifiedEvent(s)),
		ddd.NewDomainEvent(sale_event.NewSaleItemCancelledEvent(s.ID, item)),
		ddd.NewDomainEvent(sale_event.NewSaleCancelledEvent(s)),
	))

	got := make([]string, 0, 4)
	for len(got) < 4 {
		select {
		case evtType := <-rec:
			got = append(got, evtType)
		case <-time.After(time.Second):
			t.Fatalf("handled only %v", got)
		}
	}
	assert.Equal(t, []string{
		string(sale_event.EventSaleCreated),
		string(sale_event.EventSaleModified),
		string(sale_event.EventSaleItemCancelled),
		string(sale_event.EventSaleCancelled),
	}, got)
}
