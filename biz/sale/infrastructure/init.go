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

package infrastructure

import (
	"sync"

	"github.com/google/uuid"

	"github.com/salesrecord/salesapi/biz/sale/domain"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/po"
	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/ddd/executor/gormexec"
)

var once sync.Once

// Init registers the sale converters. Safe to call more than once.
func Init() {
	once.Do(func() {
		gormexec.RegisterEntity2Model(&domain.Sale{}, saleToPO, poToSale)
		gormexec.RegisterConverter(&domain.SaleItem{}, saleItemConverter{})
	})
}

// Query models are used as conditions, so every field not known yet must
// stay at its zero value. Loaded and new entities carry all fields.
func saleToPO(entity, parent ddd.IEntity, op ddd.OpType) (gormexec.IModel, error) {
	st := entity.(*domain.Sale).State()
	return &po.SalePO{
		ID:          st.ID,
		SaleNumber:  st.SaleNumber,
		SaleDate:    st.SaleDate,
		Customer:    st.Customer,
		Branch:      st.Branch,
		TotalAmount: st.TotalAmount,
		IsCancelled: st.Cancelled,
	}, nil
}

func poToSale(m gormexec.IModel, do ddd.IEntity) error {
	salePO, sale := m.(*po.SalePO), do.(*domain.Sale)
	sale.Restore(domain.SaleState{
		ID:          salePO.ID,
		SaleNumber:  salePO.SaleNumber,
		SaleDate:    salePO.SaleDate,
		Customer:    salePO.Customer,
		Branch:      salePO.Branch,
		TotalAmount: salePO.TotalAmount,
		Cancelled:   salePO.IsCancelled,
	})
	return nil
}

type saleItemConverter struct{}

func (saleItemConverter) Entity2Model(entity, parent ddd.IEntity, op ddd.OpType) (gormexec.IModel, error) {
	st := entity.(*domain.SaleItem).State()
	m := &po.SaleItemPO{
		ID:              st.ID,
		ProductID:       st.ProductID,
		ProductName:     st.ProductName,
		Quantity:        st.Quantity,
		UnitPrice:       st.UnitPrice,
		Discount:        st.Discount,
		TotalItemAmount: st.TotalItemAmount,
		IsCancelled:     st.Cancelled,
	}
	if sale, ok := parent.(*domain.Sale); ok && sale != nil {
		m.SaleID = sale.GetID()
	}
	return m, nil
}

func (saleItemConverter) Model2Entity(m gormexec.IModel, do ddd.IEntity) error {
	fr, to := m.(*po.SaleItemPO), do.(*domain.SaleItem)
	to.Restore(domain.SaleItemState{
		ID:              fr.ID,
		ProductID:       fr.ProductID,
		ProductName:     fr.ProductName,
		Quantity:        fr.Quantity,
		UnitPrice:       fr.UnitPrice,
		Discount:        fr.Discount,
		TotalItemAmount: fr.TotalItemAmount,
		Cancelled:       fr.IsCancelled,
	})
	return nil
}

// UUIDGenerator gives sales and items RFC 4122 ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
