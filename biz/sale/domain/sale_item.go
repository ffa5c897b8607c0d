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
	"github.com/shopspring/decimal"

	sale_event "github.com/salesrecord/salesapi/common/domain_event/sale"
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
)

const (
	discount10Threshold = 4
	discount20Threshold = 10
)

var (
	rate10 = decimal.New(10, -2)
	rate20 = decimal.New(20, -2)
)

// SaleItem is one line of a Sale. Discount and total are derived from
// quantity, unit price and the cancelled flag and cannot be set directly.
type SaleItem struct {
	ddd.BaseEntity

	productID       string
	productName     string
	quantity        int
	unitPrice       decimal.Decimal
	discount        decimal.Decimal
	totalItemAmount decimal.Decimal
	cancelled       bool
}

func NewSaleItem(productID, productName string, quantity int, unitPrice decimal.Decimal) (*SaleItem, error) {
	item := &SaleItem{
		productID:   productID,
		productName: productName,
		unitPrice:   unitPrice,
	}
	if err := item.SetQuantity(quantity); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *SaleItem) ID() string                       { return s.GetID() }
func (s *SaleItem) ProductID() string                { return s.productID }
func (s *SaleItem) ProductName() string              { return s.productName }
func (s *SaleItem) Quantity() int                    { return s.quantity }
func (s *SaleItem) UnitPrice() decimal.Decimal       { return s.unitPrice }
func (s *SaleItem) Discount() decimal.Decimal        { return s.discount }
func (s *SaleItem) TotalItemAmount() decimal.Decimal { return s.totalItemAmount }
func (s *SaleItem) IsCancelled() bool                { return s.cancelled }

// SetQuantity rejects more than MaxQuantity units. There is no lower bound.
func (s *SaleItem) SetQuantity(quantity int) error {
	if quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	s.quantity = quantity
	s.calPrice()
	s.Dirty()
	return nil
}

// Cancel is one way. Calling it on a cancelled item does nothing.
func (s *SaleItem) Cancel(saleID string) {
	if s.cancelled {
		return
	}
	s.cancelled = true
	s.discount = decimal.Zero
	s.totalItemAmount = decimal.Zero
	s.Dirty()
	s.AddEvent(sale_event.NewSaleItemCancelledEvent(saleID, s.Snapshot()))
}

func (s *SaleItem) calPrice() {
	if s.cancelled {
		s.discount = decimal.Zero
		s.totalItemAmount = decimal.Zero
		return
	}
	gross := s.unitPrice.Mul(decimal.NewFromInt(int64(s.quantity)))
	switch {
	case s.quantity >= discount20Threshold && s.quantity <= MaxQuantity:
		s.discount = gross.Mul(rate20)
	case s.quantity >= discount10Threshold && s.quantity < discount20Threshold:
		s.discount = gross.Mul(rate10)
	default:
		s.discount = decimal.Zero
	}
	s.totalItemAmount = gross.Sub(s.discount)
}

func (s *SaleItem) Snapshot() *sale.SaleItem {
	return &sale.SaleItem{
		ID:              s.GetID(),
		ProductID:       s.productID,
		ProductName:     s.productName,
		Quantity:        s.quantity,
		UnitPrice:       s.unitPrice,
		Discount:        s.discount,
		TotalItemAmount: s.totalItemAmount,
		IsCancelled:     s.cancelled,
	}
}

// SaleItemState is the stored form of a SaleItem.
type SaleItemState struct {
	ID              string
	ProductID       string
	ProductName     string
	Quantity        int
	UnitPrice       decimal.Decimal
	Discount        decimal.Decimal
	TotalItemAmount decimal.Decimal
	Cancelled       bool
}

func (s *SaleItem) State() SaleItemState {
	return SaleItemState{
		ID:              s.GetID(),
		ProductID:       s.productID,
		ProductName:     s.productName,
		Quantity:        s.quantity,
		UnitPrice:       s.unitPrice,
		Discount:        s.discount,
		TotalItemAmount: s.totalItemAmount,
		Cancelled:       s.cancelled,
	}
}

// Restore loads a stored state as is, without validation or events.
func (s *SaleItem) Restore(st SaleItemState) {
	s.SetID(st.ID)
	s.productID = st.ProductID
	s.productName = st.ProductName
	s.quantity = st.Quantity
	s.unitPrice = st.UnitPrice
	s.discount = st.Discount
	s.totalItemAmount = st.TotalItemAmount
	s.cancelled = st.Cancelled
}
