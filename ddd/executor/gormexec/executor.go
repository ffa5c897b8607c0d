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
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/salesrecord/salesapi/ddd"
)

var ErrInvalidDB = fmt.Errorf("executor has no db")
var ErrNoTransaction = fmt.Errorf("no transaction in context")

type txKey struct {
	executor *Executor
}

// Executor implements ddd.IExecutor on gorm. Between Begin and Commit or
// RollBack every action runs on the transaction carried by the context.
type Executor struct {
	db      *gorm.DB
	schemas sync.Map
}

func NewExecutor(db *gorm.DB) *Executor {
	return &Executor{db: db}
}

func (e *Executor) Begin(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.db == nil {
		return ctx, ErrInvalidDB
	}
	tx := e.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ctx, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return context.WithValue(ctx, txKey{e}, tx), nil
}

func (e *Executor) tx(ctx context.Context) (*gorm.DB, error) {
	if e.db == nil {
		return nil, ErrInvalidDB
	}
	tx, ok := ctx.Value(txKey{e}).(*gorm.DB)
	if !ok {
		return nil, ErrNoTransaction
	}
	return tx, nil
}

func (e *Executor) Commit(ctx context.Context) error {
	tx, err := e.tx(ctx)
	if err != nil {
		return err
	}
	return tx.Commit().Error
}

func (e *Executor) RollBack(ctx context.Context) error {
	tx, err := e.tx(ctx)
	if err != nil {
		return err
	}
	return tx.Rollback().Error
}

// DB returns the transaction bound to ctx, or the plain db outside one. Code
// writing next to the engine, like the db event bus, shares the engine
// transaction through it.
func (e *Executor) DB(ctx context.Context) *gorm.DB {
	if tx, err := e.tx(ctx); err == nil {
		return tx
	}
	return e.db.WithContext(ctx)
}

func (e *Executor) Entity2Model(entity, parent ddd.IEntity, op ddd.OpType) (ddd.IModel, error) {
	c, ok := lookup(entity)
	if !ok {
		return nil, ddd.ErrEntityNotRegister
	}
	return c.toModel(entity, parent, op)
}

func (e *Executor) Model2Entity(model ddd.IModel, entity ddd.IEntity) error {
	c, ok := lookup(entity)
	if !ok {
		return ddd.ErrEntityNotRegister
	}
	po, ok := model.(IModel)
	if !ok {
		return fmt.Errorf("model %T has no TableName", model)
	}
	return c.toEntity(po, entity)
}

func (e *Executor) Exec(ctx context.Context, action *ddd.Action) error {
	db := e.DB(ctx)
	switch action.Op {
	case ddd.OpQuery:
		return db.Where(action.Query).Find(action.QueryResult).Error
	case ddd.OpInsert:
		return e.insert(db, action.Models)
	case ddd.OpUpdate:
		return e.update(db, action.Models, action.PrevModels)
	case ddd.OpDelete:
		return e.delete(db, action.Models)
	}
	return fmt.Errorf("gorm executor cannot run op %s", action.Op)
}

// insert writes models, all of one type, in a single statement.
func (e *Executor) insert(db *gorm.DB, models []ddd.IModel) error {
	if len(models) == 0 {
		return nil
	}
	rows := reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(models[0])), 0, len(models))
	for _, m := range models {
		rows = reflect.Append(rows, reflect.ValueOf(m))
	}
	return db.Create(rows.Interface()).Error
}

// update writes only the columns that differ from the snapshot model. Without
// a snapshot the whole row is saved.
func (e *Executor) update(db *gorm.DB, models, prev []ddd.IModel) error {
	for i, m := range models {
		if i >= len(prev) || prev[i] == nil {
			if err := db.Save(m).Error; err != nil {
				return err
			}
			continue
		}
		columns := DiffModel(m, prev[i])
		if len(columns) == 0 {
			continue
		}
		if err := db.Select(columns).Updates(m).Error; err != nil {
			return err
		}
	}
	return nil
}

// delete removes models by primary key, in one statement when the key is a
// single column.
func (e *Executor) delete(db *gorm.DB, models []ddd.IModel) error {
	if len(models) == 0 {
		return nil
	}
	s, err := schema.Parse(models[0], &e.schemas, db.NamingStrategy)
	if err != nil {
		return err
	}
	if len(s.PrimaryFields) != 1 {
		for _, m := range models {
			if err := db.Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	}

	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.GetID())
	}
	empty := reflect.New(structType(models[0])).Interface()
	return db.Where(s.PrimaryFields[0].DBName+" IN ?", ids).Delete(empty).Error
}
