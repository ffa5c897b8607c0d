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

package sale

import (
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
)

const EventSaleCreated ddd.EventType = "sale_created"
const EventSaleModified ddd.EventType = "sale_modified"
const EventSaleCancelled ddd.EventType = "sale_cancelled"
const EventSaleItemCancelled ddd.EventType = "sale_item_cancelled"

// EventTypes lists every sale event, in no particular order.
var EventTypes = []ddd.EventType{EventSaleCreated, EventSaleModified, EventSaleCancelled, EventSaleItemCancelled}

// SaleCreatedEvent carries the sale as it was when the event was emitted.
type SaleCreatedEvent struct {
	Sale *sale.Sale
}

func NewSaleCreatedEvent(s *sale.Sale) *SaleCreatedEvent {
	return &SaleCreatedEvent{Sale: s}
}

func (e SaleCreatedEvent) GetType() ddd.EventType {
	return EventSaleCreated
}

func (e SaleCreatedEvent) GetSender() string {
	return e.Sale.ID
}

type SaleModifiedEvent struct {
	Sale *sale.Sale
}

func NewSaleModifiedEvent(s *sale.Sale) *SaleModifiedEvent {
	return &SaleModifiedEvent{Sale: s}
}

func (e SaleModifiedEvent) GetType() ddd.EventType {
	return EventSaleModified
}

func (e SaleModifiedEvent) GetSender() string {
	return e.Sale.ID
}

type SaleCancelledEvent struct {
	Sale *sale.Sale
}

func NewSaleCancelledEvent(s *sale.Sale) *SaleCancelledEvent {
	return &SaleCancelledEvent{Sale: s}
}

func (e SaleCancelledEvent) GetType() ddd.EventType {
	return EventSaleCancelled
}

func (e SaleCancelledEvent) GetSender() string {
	return e.Sale.ID
}

type SaleItemCancelledEvent struct {
	SaleID string
	Item   *sale.SaleItem
}

func NewSaleItemCancelledEvent(saleID string, item *sale.SaleItem) *SaleItemCancelledEvent {
	return &SaleItemCancelledEvent{SaleID: saleID, Item: item}
}

func (e SaleItemCancelledEvent) GetType() ddd.EventType {
	return EventSaleItemCancelled
}

// GetSender is the owning sale, so item events are ordered with the sale's.
func (e SaleItemCancelledEvent) GetSender() string {
	return e.SaleID
}
