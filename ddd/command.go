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
)

// ICommandMain is the body of a command. It loads, mutates and registers
// aggregates through repo; the engine persists whatever changed.
type ICommandMain interface {
	Main(ctx context.Context, repo *Repository) (err error)
}

// ICommandInit runs before the lock and the transaction. It validates input
// and returns the keys to lock, usually the aggregate ids.
type ICommandInit interface {
	Init(ctx context.Context) (lockKeys []string, err error)
}

// ICommandPostSave runs once the transaction is finished, successful or not.
type ICommandPostSave interface {
	PostSave(ctx context.Context, res *Result)
}

type MainFunc func(ctx context.Context, repo *Repository) error
type PostSaveFunc func(ctx context.Context, res *Result)

// EventHandlerConstruct builds a command from an event. It takes one pointer
// argument of the event payload type (or *DomainEvent) and returns either an
// ICommandMain or a MainFunc, for example
// func(evt *SaleCancelledEvent) *OnSaleCancelledHandler
type EventHandlerConstruct interface{}
