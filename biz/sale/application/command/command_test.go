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

package command

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/salesrecord/salesapi/biz/sale/domain"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/po"
	sale_event "github.com/salesrecord/salesapi/common/domain_event/sale"
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/ddd/executor/gormexec"
	"github.com/salesrecord/salesapi/testsuit"
)

func newEngine(t *testing.T) (*ddd.Engine, *gorm.DB) {
	db := testsuit.InitSQLite(t.Name())
	require.NoError(t, db.AutoMigrate(&po.SalePO{}, &po.SaleItemPO{}))
	infrastructure.Init()
	engine := ddd.NewEngine(testsuit.NewMemLock(), gormexec.NewExecutor(db),
		ddd.WithIDGenerator(infrastructure.UUIDGenerator{}))
	return engine, db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func eventTypes(evts []*ddd.DomainEvent) []ddd.EventType {
	types := make([]ddd.EventType, len(evts))
	for i, evt := range evts {
		types[i] = evt.Type
	}
	return types
}

func itemByProduct(s *sale.Sale, productID string) *sale.SaleItem {
	for _, item := range s.Items {
		if item.ProductID == productID {
			return item
		}
	}
	return nil
}

func createSale(t *testing.T, engine *ddd.Engine) *sale.Sale {
	cmd := NewCreateSaleCommand(CreateSaleOpt{
		SaleNumber: 1001,
		SaleDate:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Customer:   "ACME",
		Branch:     "Downtown",
		Items: []NewItem{
			{ProductID: "p1", ProductName: "Widget", Quantity: 5, UnitPrice: dec("10")},
			{ProductID: "p2", ProductName: "Gadget", Quantity: 2, UnitPrice: dec("3")},
		},
	})
	res := engine.Run(context.Background(), cmd)
	require.NoError(t, res.Error)
	require.NotNil(t, cmd.Result)
	return cmd.Result
}

func TestCreateSale(t *testing.T) {
	ctx := context.Background()
	engine, db := newEngine(t)

	cmd := NewCreateSaleCommand(CreateSaleOpt{
		SaleNumber: 1001,
		SaleDate:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Customer:   "ACME",
		Branch:     "Downtown",
		Items: []NewItem{
			{ProductID: "p1", ProductName: "Widget", Quantity: 5, UnitPrice: dec("10")},
			{ProductID: "p2", ProductName: "Gadget", Quantity: 2, UnitPrice: dec("3")},
		},
	})
	res := engine.Run(ctx, cmd)
	require.NoError(t, res.Error)

	s := cmd.Result
	assert.Equal(t, s, res.Output)
	assert.NotEmpty(t, s.ID)
	assert.True(t, s.TotalAmount.Equal(dec("51")), s.TotalAmount.String())
	require.Len(t, s.Items, 2)
	for _, item := range s.Items {
		assert.NotEmpty(t, item.ID)
	}
	assert.True(t, itemByProduct(s, "p1").Discount.Equal(dec("5")))

	assert.Equal(t, []ddd.EventType{sale_event.EventSaleCreated}, eventTypes(res.Events))
	assert.Equal(t, s.ID, res.Events[0].Sender)

	salePO := &po.SalePO{}
	require.NoError(t, db.First(salePO, "id = ?", s.ID).Error)
	assert.Equal(t, "ACME", salePO.Customer)
	assert.True(t, salePO.TotalAmount.Equal(dec("51")))

	var count int64
	require.NoError(t, db.Model(&po.SaleItemPO{}).Where("sale_id = ?", s.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCreateSaleInvalidQuantity(t *testing.T) {
	engine, db := newEngine(t)

	res := engine.Run(context.Background(), NewCreateSaleCommand(CreateSaleOpt{
		SaleNumber: 1,
		Customer:   "ACME",
		Branch:     "Downtown",
		Items: []NewItem{
			{ProductID: "p1", ProductName: "Widget", Quantity: 21, UnitPrice: dec("10")},
		},
	}))
	assert.ErrorIs(t, res.Error, domain.ErrInvalidQuantity)
	assert.Empty(t, res.Events)

	var count int64
	require.NoError(t, db.Model(&po.SalePO{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateSale(t *testing.T) {
	ctx := context.Background()
	engine, db := newEngine(t)
	created := createSale(t, engine)
	kept := itemByProduct(created, "p1")
	removed := itemByProduct(created, "p2")

	cmd := NewUpdateSaleCommand(created.ID, UpdateSaleOpt{
		SaleNumber: 1002,
		SaleDate:   created.SaleDate,
		Customer:   "ACME Corp",
		Branch:     "Uptown",
		Items: []domain.ItemSpec{
			{ID: kept.ID, ProductID: "ignored", Quantity: 10, UnitPrice: dec("99")},
			{ProductID: "p3", ProductName: "Gizmo", Quantity: 1, UnitPrice: dec("7.5")},
		},
	})
	res := engine.Run(ctx, cmd)
	require.NoError(t, res.Error)

	s := cmd.Result
	assert.Equal(t, 1002, s.SaleNumber)
	assert.Equal(t, "ACME Corp", s.Customer)
	require.Len(t, s.Items, 2)
	p1 := itemByProduct(s, "p1")
	require.NotNil(t, p1)
	assert.Equal(t, kept.ID, p1.ID)
	assert.True(t, p1.UnitPrice.Equal(dec("10")))
	assert.True(t, p1.TotalItemAmount.Equal(dec("80")))
	assert.NotEmpty(t, itemByProduct(s, "p3").ID)
	assert.True(t, s.TotalAmount.Equal(dec("87.5")), s.TotalAmount.String())
	assert.Equal(t, []ddd.EventType{sale_event.EventSaleModified}, eventTypes(res.Events))

	items := make([]*po.SaleItemPO, 0)
	require.NoError(t, db.Where("sale_id = ?", created.ID).Find(&items).Error)
	assert.Len(t, items, 2)
	for _, item := range items {
		assert.NotEqual(t, removed.ID, item.ID)
	}
	salePO := &po.SalePO{}
	require.NoError(t, db.First(salePO, "id = ?", created.ID).Error)
	assert.True(t, salePO.TotalAmount.Equal(dec("87.5")))
	assert.Equal(t, "Uptown", salePO.Branch)
}

func TestUpdateSaleWithCancel(t *testing.T) {
	engine, db := newEngine(t)
	created := createSale(t, engine)

	cmd := NewUpdateSaleCommand(created.ID, UpdateSaleOpt{
		SaleNumber: created.SaleNumber,
		SaleDate:   created.SaleDate,
		Customer:   created.Customer,
		Branch:     created.Branch,
		Cancel:     true,
		Items: []domain.ItemSpec{
			{ID: itemByProduct(created, "p1").ID, Quantity: 5},
			{ProductID: "p3", ProductName: "Gizmo", Quantity: 1, UnitPrice: dec("7.5")},
		},
	})
	res := engine.Run(context.Background(), cmd)
	require.NoError(t, res.Error)

	s := cmd.Result
	assert.True(t, s.IsCancelled)
	assert.True(t, s.TotalAmount.IsZero())
	for _, item := range s.Items {
		assert.True(t, item.IsCancelled)
		assert.True(t, item.TotalItemAmount.IsZero())
	}
	assert.Equal(t, []ddd.EventType{
		sale_event.EventSaleModified,
		sale_event.EventSaleItemCancelled,
		sale_event.EventSaleItemCancelled,
		sale_event.EventSaleCancelled,
	}, eventTypes(res.Events))

	var active int64
	require.NoError(t, db.Model(&po.SaleItemPO{}).Where("sale_id = ? AND is_cancelled = ?", created.ID, false).Count(&active).Error)
	assert.Zero(t, active)
}

func TestUpdateCancelledSaleWithNewLine(t *testing.T) {
	ctx := context.Background()
	engine, db := newEngine(t)
	created := createSale(t, engine)
	require.NoError(t, engine.Run(ctx, NewCancelSaleCommand(created.ID)).Error)

	cmd := NewUpdateSaleCommand(created.ID, UpdateSaleOpt{
		SaleNumber: created.SaleNumber,
		SaleDate:   created.SaleDate,
		Customer:   created.Customer,
		Branch:     created.Branch,
		Items: []domain.ItemSpec{
			{ID: itemByProduct(created, "p1").ID, Quantity: 5},
			{ProductID: "p3", ProductName: "Gizmo", Quantity: 2, UnitPrice: dec("10")},
		},
	})
	res := engine.Run(ctx, cmd)
	require.NoError(t, res.Error)

	s := cmd.Result
	assert.True(t, s.IsCancelled)
	assert.True(t, s.TotalAmount.IsZero())
	added := itemByProduct(s, "p3")
	require.NotNil(t, added)
	assert.True(t, added.IsCancelled)
	assert.True(t, added.TotalItemAmount.IsZero())
	assert.Equal(t, []ddd.EventType{
		sale_event.EventSaleModified,
		sale_event.EventSaleItemCancelled,
	}, eventTypes(res.Events))

	var active int64
	require.NoError(t, db.Model(&po.SaleItemPO{}).Where("sale_id = ? AND is_cancelled = ?", created.ID, false).Count(&active).Error)
	assert.Zero(t, active)
	salePO := &po.SalePO{}
	require.NoError(t, db.First(salePO, "id = ?", created.ID).Error)
	assert.True(t, salePO.TotalAmount.IsZero())
}

func TestUpdateSaleInvalidQuantity(t *testing.T) {
	engine, db := newEngine(t)
	created := createSale(t, engine)

	res := engine.Run(context.Background(), NewUpdateSaleCommand(created.ID, UpdateSaleOpt{
		SaleNumber: created.SaleNumber,
		Customer:   "changed",
		Branch:     created.Branch,
		Items:      []domain.ItemSpec{{ID: itemByProduct(created, "p1").ID, Quantity: 21}},
	}))
	assert.ErrorIs(t, res.Error, domain.ErrInvalidQuantity)

	salePO := &po.SalePO{}
	require.NoError(t, db.First(salePO, "id = ?", created.ID).Error)
	assert.Equal(t, "ACME", salePO.Customer)
}

func TestUpdateSaleNotFound(t *testing.T) {
	engine, _ := newEngine(t)
	res := engine.Run(context.Background(), NewUpdateSaleCommand("missing", UpdateSaleOpt{}))
	assert.ErrorIs(t, res.Error, domain.ErrSaleNotFound)
}

func TestCancelSale(t *testing.T) {
	ctx := context.Background()
	engine, db := newEngine(t)
	created := createSale(t, engine)

	cmd := NewCancelSaleCommand(created.ID)
	res := engine.Run(ctx, cmd)
	require.NoError(t, res.Error)
	assert.True(t, cmd.Result.IsCancelled)
	assert.Equal(t, []ddd.EventType{
		sale_event.EventSaleItemCancelled,
		sale_event.EventSaleItemCancelled,
		sale_event.EventSaleCancelled,
	}, eventTypes(res.Events))

	salePO := &po.SalePO{}
	require.NoError(t, db.First(salePO, "id = ?", created.ID).Error)
	assert.True(t, salePO.IsCancelled)
	assert.True(t, salePO.TotalAmount.IsZero())

	again := NewCancelSaleCommand(created.ID)
	res = engine.Run(ctx, again)
	require.NoError(t, res.Error)
	assert.True(t, again.Result.IsCancelled)
	assert.Empty(t, res.Events)

	res = engine.Run(ctx, NewCancelSaleCommand("missing"))
	assert.ErrorIs(t, res.Error, domain.ErrSaleNotFound)
}

func TestDeleteSale(t *testing.T) {
	ctx := context.Background()
	engine, db := newEngine(t)
	created := createSale(t, engine)

	cmd := NewDeleteSaleCommand(created.ID)
	res := engine.Run(ctx, cmd, cmd.Options()...)
	require.NoError(t, res.Error)
	assert.Empty(t, res.Events)

	var count int64
	require.NoError(t, db.Model(&po.SalePO{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&po.SaleItemPO{}).Count(&count).Error)
	assert.Zero(t, count)

	again := NewDeleteSaleCommand(created.ID)
	res = engine.Run(ctx, again, again.Options()...)
	assert.ErrorIs(t, res.Error, domain.ErrSaleNotFound)
}
