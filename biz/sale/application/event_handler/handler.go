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

	sale_event "github.com/salesrecord/salesapi/common/domain_event/sale"
	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/logger/stdr"
	"github.com/salesrecord/salesapi/metrics"
)

var logger = stdr.NewStdr("sale_event_handler")

// Recorder counts handled events. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordEventHandled(eventType string)
}

var _ Recorder = (*metrics.Metrics)(nil)

type nopRecorder struct{}

func (nopRecorder) RecordEventHandled(string) {}

// Register routes every sale event to a logging handler run by engine.
func Register(engine *ddd.Engine, recorder Recorder) {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	engine.RegisterEventHandler(sale_event.EventSaleCreated, func(evt *sale_event.SaleCreatedEvent) ddd.MainFunc {
		return func(ctx context.Context, repo *ddd.Repository) error {
			logger.Info("sale created", "sale", evt.Sale.ID, "number", evt.Sale.SaleNumber,
				"customer", evt.Sale.Customer, "total", evt.Sale.TotalAmount.String())
			recorder.RecordEventHandled(string(sale_event.EventSaleCreated))
			return nil
		}
	})
	engine.RegisterEventHandler(sale_event.EventSaleModified, func(evt *sale_event.SaleModifiedEvent) ddd.MainFunc {
		return func(ctx context.Context, repo *ddd.Repository) error {
			logger.Info("sale modified", "sale", evt.Sale.ID, "number", evt.Sale.SaleNumber)
			recorder.RecordEventHandled(string(sale_event.EventSaleModified))
			return nil
		}
	})
	engine.RegisterEventHandler(sale_event.EventSaleCancelled, func(evt *sale_event.SaleCancelledEvent) ddd.MainFunc {
		return func(ctx context.Context, repo *ddd.Repository) error {
			logger.Info("sale cancelled", "sale", evt.Sale.ID, "number", evt.Sale.SaleNumber)
			recorder.RecordEventHandled(string(sale_event.EventSaleCancelled))
			return nil
		}
	})
	engine.RegisterEventHandler(sale_event.EventSaleItemCancelled, NewOnSaleItemCancelledHandler(recorder))
}

// OnSaleItemCancelledHandler implements ddd.ICommandMain.
type OnSaleItemCancelledHandler struct {
	event    *sale_event.SaleItemCancelledEvent
	recorder Recorder
}

func NewOnSaleItemCancelledHandler(recorder Recorder) func(evt *sale_event.SaleItemCancelledEvent) *OnSaleItemCancelledHandler {
	return func(evt *sale_event.SaleItemCancelledEvent) *OnSaleItemCancelledHandler {
		return &OnSaleItemCancelledHandler{event: evt, recorder: recorder}
	}
}

func (h *OnSaleItemCancelledHandler) Main(ctx context.Context, repo *ddd.Repository) error {
	logger.Info("sale item cancelled", "sale", h.event.SaleID, "item", h.event.Item.ID,
		"product", h.event.Item.ProductID)
	h.recorder.RecordEventHandled(string(sale_event.EventSaleItemCancelled))
	return nil
}
