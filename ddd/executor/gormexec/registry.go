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
	"reflect"
	"sync"

	"github.com/salesrecord/salesapi/ddd"
)

// IModel is a gorm model the executor can write.
type IModel interface {
	GetID() string
	TableName() string
}

// Entity2Model builds the model of entity. parent is nil for roots. For
// ddd.OpQuery only fields that identify the row may be set.
type Entity2Model func(entity, parent ddd.IEntity, op ddd.OpType) (IModel, error)

// Model2Entity copies a loaded model into entity.
type Model2Entity func(po IModel, do ddd.IEntity) error

type IConverter interface {
	Entity2Model(entity, parent ddd.IEntity, op ddd.OpType) (IModel, error)
	Model2Entity(po IModel, do ddd.IEntity) error
}

type converter struct {
	toModel  Entity2Model
	toEntity Model2Entity
}

var converters sync.Map // entity struct type -> converter

func structType(v interface{}) reflect.Type {
	return reflect.Indirect(reflect.ValueOf(v)).Type()
}

// RegisterEntity2Model binds the conversion functions of an entity type, as in
// gormexec.RegisterEntity2Model(&domain.Sale{}, toPO, fromPO). It is meant to
// be called from init or before the first run.
func RegisterEntity2Model(entity ddd.IEntity, toModel Entity2Model, toEntity Model2Entity) {
	converters.Store(structType(entity), converter{toModel: toModel, toEntity: toEntity})
}

// RegisterConverter is RegisterEntity2Model for a type implementing both directions.
func RegisterConverter(entity ddd.IEntity, c IConverter) {
	RegisterEntity2Model(entity, c.Entity2Model, c.Model2Entity)
}

func lookup(entity ddd.IEntity) (converter, bool) {
	c, ok := converters.Load(structType(entity))
	if !ok {
		return converter{}, false
	}
	return c.(converter), true
}
