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

package gormexec

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/testsuit"
)

type label struct {
	ddd.BaseEntity

	Text string
}

type fruit struct {
	ddd.BaseEntity

	Kind   string
	Origin []string
	Weight decimal.Decimal
	Labels []*label
}

type basket struct {
	ddd.BaseEntity

	Owner  string
	Fruits []*fruit
}

type basketPO struct {
	ID    string `gorm:"primaryKey"`
	Owner string
}

func (p *basketPO) GetID() string     { return p.ID }
func (p *basketPO) TableName() string { return "basket" }

type fruitPO struct {
	ID       string `gorm:"primaryKey"`
	BasketID string `gorm:"index"`
	Kind     string
	Origin   []string        `gorm:"serializer:json"`
	Weight   decimal.Decimal `gorm:"type:decimal(10,3)"`
}

func (p *fruitPO) GetID() string     { return p.ID }
func (p *fruitPO) TableName() string { return "fruit" }

type labelPO struct {
	ID      string `gorm:"primaryKey"`
	FruitID string `gorm:"index"`
	Text    string
}

func (p *labelPO) GetID() string     { return p.ID }
func (p *labelPO) TableName() string { return "label" }

func parentID(parent ddd.IEntity) string {
	if parent == nil {
		return ""
	}
	return parent.GetID()
}

func init() {
	RegisterEntity2Model(&basket{}, func(entity, parent ddd.IEntity, op ddd.OpType) (IModel, error) {
		b := entity.(*basket)
		return &basketPO{ID: b.GetID(), Owner: b.Owner}, nil
	}, func(model IModel, entity ddd.IEntity) error {
		po, b := model.(*basketPO), entity.(*basket)
		b.SetID(po.ID)
		b.Owner = po.Owner
		return nil
	})
	RegisterEntity2Model(&fruit{}, func(entity, parent ddd.IEntity, op ddd.OpType) (IModel, error) {
		f := entity.(*fruit)
		return &fruitPO{ID: f.GetID(), BasketID: parentID(parent), Kind: f.Kind, Origin: f.Origin, Weight: f.Weight}, nil
	}, func(model IModel, entity ddd.IEntity) error {
		po, f := model.(*fruitPO), entity.(*fruit)
		f.SetID(po.ID)
		f.Kind, f.Origin, f.Weight = po.Kind, po.Origin, po.Weight
		return nil
	})
	RegisterConverter(&label{}, labelConverter{})
}

type labelConverter struct{}

func (labelConverter) Entity2Model(entity, parent ddd.IEntity, op ddd.OpType) (IModel, error) {
	l := entity.(*label)
	return &labelPO{ID: l.GetID(), FruitID: parentID(parent), Text: l.Text}, nil
}

func (labelConverter) Model2Entity(model IModel, entity ddd.IEntity) error {
	po, l := model.(*labelPO), entity.(*label)
	l.SetID(po.ID)
	l.Text = po.Text
	return nil
}

func openDB(t *testing.T) *gorm.DB {
	db := testsuit.InitSQLite(t.Name())
	require.NoError(t, db.AutoMigrate(&basketPO{}, &fruitPO{}, &labelPO{}))
	return db
}

func kg(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPersistAggregate(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	engine := ddd.NewEngine(testsuit.NewMemLock(), NewExecutor(db))

	full := &basket{
		BaseEntity: ddd.NewBase("b1"),
		Owner:      "ann",
		Fruits: []*fruit{
			{BaseEntity: ddd.NewBase("apple"), Kind: "apple", Weight: kg("0.250")},
			{BaseEntity: ddd.NewBase("pear"), Kind: "pear", Weight: kg("0.300")},
		},
	}
	spare := &basket{BaseEntity: ddd.NewBase("b2"), Owner: "ben"}
	require.NoError(t, engine.Create(ctx, full, spare).Error)
	for _, id := range []string{"apple", "pear"} {
		assert.NoError(t, db.First(&fruitPO{}, "id = ?", id).Error)
	}

	res := engine.Run(ctx, func(ctx context.Context, repo *ddd.Repository) error {
		b := &basket{BaseEntity: ddd.NewBase("b1")}
		if err := repo.Get(ctx, b, &b.Fruits); err != nil {
			return err
		}
		gone := &basket{BaseEntity: ddd.NewBase("b2")}
		if err := repo.Get(ctx, gone); err != nil {
			return err
		}

		var apple *fruit
		for _, f := range b.Fruits {
			if f.GetID() == "apple" {
				apple = f
			}
		}
		apple.Origin = []string{"es", "fr"}
		apple.Weight = kg("0.275")
		apple.Labels = append(apple.Labels, &label{BaseEntity: ddd.NewBase("organic"), Text: "organic"})
		apple.Dirty()
		b.Fruits = []*fruit{apple, {BaseEntity: ddd.NewBase("plum"), Kind: "plum", Weight: kg("0.050")}}

		repo.Remove(gone)
		return nil
	})
	require.NoError(t, res.Error)

	apple := fruitPO{}
	require.NoError(t, db.First(&apple, "id = ?", "apple").Error)
	assert.Equal(t, "b1", apple.BasketID)
	assert.Equal(t, []string{"es", "fr"}, apple.Origin)
	assert.True(t, kg("0.275").Equal(apple.Weight))

	organic := labelPO{}
	require.NoError(t, db.First(&organic, "id = ?", "organic").Error)
	assert.Equal(t, "apple", organic.FruitID)
	assert.NoError(t, db.First(&fruitPO{}, "id = ?", "plum").Error)
	assert.ErrorIs(t, db.First(&fruitPO{}, "id = ?", "pear").Error, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, db.First(&basketPO{}, "id = ?", "b2").Error, gorm.ErrRecordNotFound)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	engine := ddd.NewEngine(nil, NewExecutor(db))

	baskets := []ddd.IEntity{&basket{Owner: "a"}, &basket{Owner: "b"}, &basket{Owner: "c"}}
	require.NoError(t, engine.Create(ctx, baskets...).Error)
	var n int64
	require.NoError(t, db.Model(&basketPO{}).Count(&n).Error)
	assert.Equal(t, int64(3), n)

	res := engine.Delete(ctx, baskets...)
	require.NoError(t, res.Error)
	require.Len(t, res.Actions, 1)
	assert.Len(t, res.Actions[0].Models, 3)
	require.NoError(t, db.Model(&basketPO{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestFailedRunRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	engine := ddd.NewEngine(nil, NewExecutor(db))

	res := engine.Run(ctx, func(ctx context.Context, repo *ddd.Repository) error {
		repo.Add(&basket{BaseEntity: ddd.NewBase("twin"), Owner: "first"})
		repo.Add(&basket{BaseEntity: ddd.NewBase("twin"), Owner: "second"})
		return nil
	})
	assert.Error(t, res.Error)
	assert.ErrorIs(t, db.First(&basketPO{}, "id = ?", "twin").Error, gorm.ErrRecordNotFound)
}

func TestUpdateWritesChangedColumns(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	engine := ddd.NewEngine(nil, NewExecutor(db))
	b := &basket{Owner: "same"}
	require.NoError(t, engine.Create(ctx, b).Error)

	res := engine.Run(ctx, func(ctx context.Context, repo *ddd.Repository) error {
		loaded := &basket{BaseEntity: ddd.NewBase(b.GetID())}
		if err := repo.Get(ctx, loaded); err != nil {
			return err
		}
		loaded.Dirty()
		return nil
	})
	require.NoError(t, res.Error)
	require.Len(t, res.Actions, 1)
	a := res.Actions[0]
	assert.Equal(t, ddd.OpUpdate, a.Op)
	assert.Empty(t, DiffModel(a.Models[0], a.PrevModels[0]))

	// a row written behind the engine's back is not overwritten by an
	// update that changes nothing
	require.NoError(t, db.Model(&basketPO{}).Where("id = ?", b.GetID()).Update("owner", "other").Error)
	require.NoError(t, engine.Run(ctx, func(ctx context.Context, repo *ddd.Repository) error {
		loaded := &basket{BaseEntity: ddd.NewBase(b.GetID())}
		if err := repo.Get(ctx, loaded); err != nil {
			return err
		}
		loaded.Dirty()
		return nil
	}).Error)
	got := basketPO{}
	require.NoError(t, db.First(&got, "id = ?", b.GetID()).Error)
	assert.Equal(t, "other", got.Owner)
}

func TestTransactionInContext(t *testing.T) {
	db := openDB(t)
	e := NewExecutor(db)

	ctx, err := e.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, e.DB(ctx).Create(&basketPO{ID: "in_tx", Owner: "t"}).Error)
	require.NoError(t, e.Commit(ctx))

	assert.ErrorIs(t, e.Commit(context.Background()), ErrNoTransaction)
	assert.ErrorIs(t, e.RollBack(context.Background()), ErrNoTransaction)
	assert.NoError(t, e.DB(context.Background()).First(&basketPO{}, "id = ?", "in_tx").Error)
}

func TestUnknownEntity(t *testing.T) {
	type stranger struct {
		ddd.BaseEntity
	}
	e := NewExecutor(nil)
	_, err := e.Entity2Model(&stranger{}, nil, ddd.OpInsert)
	assert.ErrorIs(t, err, ddd.ErrEntityNotRegister)
	assert.ErrorIs(t, e.Model2Entity(&basketPO{}, &stranger{}), ddd.ErrEntityNotRegister)

	_, err = e.Begin(context.Background())
	assert.ErrorIs(t, err, ErrInvalidDB)
	assert.Error(t, e.Exec(context.Background(), &ddd.Action{Op: ddd.OpUnknown}))
}
