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

package ddd

import (
	"context"
	"fmt"
)

type OpType int8

const (
	OpUnknown OpType = 0
	OpInsert  OpType = 1
	OpUpdate  OpType = 2
	OpDelete  OpType = 3
	OpQuery   OpType = 4
)

func (o OpType) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpQuery:
		return "query"
	}
	return "unknown"
}

var ErrEntityNotRegister = fmt.Errorf("entity not registered")

type IModel interface {
	GetID() string
}

type Action struct {
	Op OpType

	Models      []IModel    // models of one type, the stage never mixes types in an Action
	PrevModels  []IModel    // snapshot models matching Models one to one, used to diff updates
	Query       IModel      // model whose non zero fields are the query conditions
	QueryResult interface{} // pointer to a model slice, like *[]*SalePO
}

type ITransaction interface {
	// Begin starts a transaction and returns a context carrying it. The same
	// context is handed to Commit or RollBack.
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	RollBack(ctx context.Context) error
}

type IConverter interface {
	// Entity2Model converts an entity to its persistent model. parent is the
	// owning entity, nil for roots. Except for OpInsert, fields without an
	// entity counterpart must stay at their zero value, since query models are
	// used as conditions. Unknown entities return ErrEntityNotRegister.
	Entity2Model(entity, parent IEntity, op OpType) (IModel, error)
	// Model2Entity fills entity from a loaded model.
	Model2Entity(model IModel, entity IEntity) error
}

type IExecutor interface {
	ITransaction
	IConverter

	Exec(ctx context.Context, action *Action) error
}
