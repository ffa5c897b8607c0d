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

package domain

import (
	"time"

	"github.com/shopspring/decimal"

	sale_event "github.com/salesrecord/salesapi/common/domain_event/sale"
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
)

// Sale is the aggregate root. It owns its items exclusively and keeps
// totalAmount equal to the sum of the item totals.
type Sale struct {
	ddd.BaseEntity

	saleNumber  int
	saleDate    time.Time
	customer    string
	branch      string
	totalAmount decimal.Decimal
	cancelled   bool
	items       []*SaleItem

	// removed items may still hold events not drained yet
	removed []*SaleItem
}

// NewSale returns an empty, not cancelled sale. It emits nothing, the creator
// calls RecordCreated once the sale has its id.
func NewSale(saleNumber int, saleDate time.Time, customer, branch string) *Sale {
	s := &Sale{
		saleNumber: saleNumber,
		saleDate:   saleDate,
		customer:   customer,
		branch:     branch,
	}
	s.calTotal()
	return s
}

func (s *Sale) ID() string                   { return s.GetID() }
func (s *Sale) SaleNumber() int              { return s.saleNumber }
func (s *Sale) SaleDate() time.Time          { return s.saleDate }
func (s *Sale) Customer() string             { return s.customer }
func (s *Sale) Branch() string               { return s.branch }
func (s *Sale) TotalAmount() decimal.Decimal { return s.totalAmount }
func (s *Sale) IsCancelled() bool            { return s.cancelled }

// Items returns a copy of the item list, mutations go through the Sale.
func (s *Sale) Items() []*SaleItem {
	return append([]*SaleItem(nil), s.items...)
}

func (s *Sale) GetChildren() map[string][]ddd.IEntity {
	children := make([]ddd.IEntity, 0, len(s.items))
	for _, item := range s.items {
		children = append(children, item)
	}
	return map[string][]ddd.IEntity{"items": children}
}

func (s *Sale) RecordCreated() {
	s.AddEvent(sale_event.NewSaleCreatedEvent(s.Snapshot()))
}

func (s *Sale) UpdateDetails(saleNumber int, saleDate time.Time, customer, branch string) {
	s.saleNumber = saleNumber
	s.saleDate = saleDate
	s.customer = customer
	s.branch = branch
	s.calTotal()
	s.Dirty()
	s.AddEvent(sale_event.NewSaleModifiedEvent(s.Snapshot()))
}

// AddItem appends item, several lines may share a product. An item joining a
// cancelled sale is cancelled with it.
func (s *Sale) AddItem(item *SaleItem) {
	if s.cancelled {
		item.Cancel(s.GetID())
	}
	s.items = append(s.items, item)
	s.calTotal()
}

func (s *Sale) removeItem(item *SaleItem) {
	items := make([]*SaleItem, 0, len(s.items))
	for _, it := range s.items {
		if it != item {
			items = append(items, it)
		}
	}
	s.items = items
	s.removed = append(s.removed, item)
	s.calTotal()
}

// Cancel cancels every item, then the sale. Each newly cancelled item emits
// its event before the single SaleCancelled.
func (s *Sale) Cancel() {
	if s.cancelled {
		return
	}
	s.cancelled = true
	for _, item := range s.items {
		item.Cancel(s.GetID())
	}
	s.calTotal()
	s.Dirty()
	s.AddEvent(sale_event.NewSaleCancelledEvent(s.Snapshot()))
}

// calTotal always sums from scratch.
func (s *Sale) calTotal() {
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.TotalItemAmount())
	}
	if !total.Equal(s.totalAmount) {
		s.Dirty()
	}
	s.totalAmount = total
}

// DrainEvents returns the events of the sale and of its items, current and
// removed, in emission order, and clears them.
func (s *Sale) DrainEvents() []*ddd.DomainEvent {
	groups := [][]*ddd.DomainEvent{s.BaseEntity.DrainEvents()}
	for _, item := range s.items {
		groups = append(groups, item.DrainEvents())
	}
	for _, item := range s.removed {
		groups = append(groups, item.DrainEvents())
	}
	s.removed = nil
	return ddd.MergeEvents(groups...)
}

// GetEvents peeks at the pending events without clearing them.
func (s *Sale) GetEvents() []*ddd.DomainEvent {
	groups := [][]*ddd.DomainEvent{s.BaseEntity.GetEvents()}
	for _, item := range s.items {
		groups = append(groups, item.GetEvents())
	}
	for _, item := range s.removed {
		groups = append(groups, item.GetEvents())
	}
	return ddd.MergeEvents(groups...)
}

func (s *Sale) Snapshot() *sale.Sale {
	items := make([]*sale.SaleItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item.Snapshot())
	}
	return &sale.Sale{
		ID:          s.GetID(),
		SaleNumber:  s.saleNumber,
		SaleDate:    s.saleDate,
		Customer:    s.customer,
		Branch:      s.branch,
		TotalAmount: s.totalAmount,
		IsCancelled: s.cancelled,
		Items:       items,
	}
}

// SaleState is the stored form of a Sale header.
type SaleState struct {
	ID          string
	SaleNumber  int
	SaleDate    time.Time
	Customer    string
	Branch      string
	TotalAmount decimal.Decimal
	Cancelled   bool
}

func (s *Sale) State() SaleState {
	return SaleState{
		ID:          s.GetID(),
		SaleNumber:  s.saleNumber,
		SaleDate:    s.saleDate,
		Customer:    s.customer,
		Branch:      s.branch,
		TotalAmount: s.totalAmount,
		Cancelled:   s.cancelled,
	}
}

// Restore loads a stored header as is, without events.
func (s *Sale) Restore(st SaleState) {
	s.SetID(st.ID)
	s.saleNumber = st.SaleNumber
	s.saleDate = st.SaleDate
	s.customer = st.Customer
	s.branch = st.Branch
	s.totalAmount = st.TotalAmount
	s.cancelled = st.Cancelled
}

// RestoreItems attaches stored items.
func (s *Sale) RestoreItems(items []*SaleItem) {
	s.items = items
}
