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
	"reflect"
	"strings"
)

type EntitySlice []IEntity

// IEntity is implemented by every domain object tracked by the engine.
type IEntity interface {
	IDirty

	SetID(id string)
	GetID() string

	// GetChildren returns the child entities grouped by relation name, nil means
	// the engine discovers children by reflection over exported fields.
	GetChildren() map[string][]IEntity
	// GetEvents returns the events held by the entity without clearing them.
	GetEvents() []*DomainEvent
	// DrainEvents returns the held events in emission order and clears them.
	DrainEvents() []*DomainEvent
}

type IBeforeCreate interface {
	BeforeCreate(ctx context.Context) error
}

type IAfterCreate interface {
	AfterCreate(ctx context.Context) error
}

type IBeforeUpdate interface {
	BeforeUpdate(ctx context.Context) error
}

type IAfterUpdate interface {
	AfterUpdate(ctx context.Context) error
}

type IBeforeDelete interface {
	BeforeDelete(ctx context.Context) error
}

type IAfterDelete interface {
	AfterDelete(ctx context.Context) error
}

type IDirty interface {
	// Dirty marks the entity as changed so it is updated on the next save
	Dirty()
	// UnDirty clears the change mark
	UnDirty()
	// IsDirty reports whether the entity must be updated
	IsDirty() bool
}

// BaseEntity carries the identity, the dirty flag and the event log of an entity.
type BaseEntity struct {
	id      string
	isDirty bool
	events  EventLog
}

var entityType = reflect.TypeOf((*IEntity)(nil)).Elem()
var baseEntityType = reflect.TypeOf(&BaseEntity{})

func NewBase(id string) BaseEntity {
	return BaseEntity{id: id}
}

func (e *BaseEntity) SetID(id string) {
	e.id = id
}

func (e *BaseEntity) GetID() string {
	return e.id
}

func (e *BaseEntity) Dirty() {
	e.isDirty = true
}

func (e *BaseEntity) UnDirty() {
	e.isDirty = false
}

func (e *BaseEntity) IsDirty() bool {
	return e.isDirty
}

func (e *BaseEntity) GetChildren() map[string][]IEntity {
	return nil
}

// AddEvent appends a domain event built from evt to the entity's log.
func (e *BaseEntity) AddEvent(evt IEvent, opts ...EventOpt) *DomainEvent {
	return e.events.Emit(evt, opts...)
}

func (e *BaseEntity) GetEvents() []*DomainEvent {
	return e.events.Events()
}

func (e *BaseEntity) DrainEvents() []*DomainEvent {
	return e.events.Drain()
}

// SameEntity reports whether a and b denote the same persisted entity: both
// have an ID, the IDs match and the concrete types match.
func SameEntity(a, b IEntity) bool {
	if a == nil || b == nil {
		return false
	}
	if a.GetID() == "" || b.GetID() == "" {
		return false
	}
	return a.GetID() == b.GetID() && reflect.TypeOf(a) == reflect.TypeOf(b)
}

// CompareByID orders entities by ID, descending. Entities without ID sort last.
func CompareByID(a, b IEntity) int {
	ida, idb := a.GetID(), b.GetID()
	switch {
	case ida == idb:
		return 0
	case ida == "":
		return 1
	case idb == "":
		return -1
	}
	return strings.Compare(idb, ida)
}
