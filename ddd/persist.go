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
	"errors"
	"reflect"
)

// snapshotOf records what entity and its children look like now.
func (e *Stage) snapshotOf(entity, parent IEntity, children map[string][]IEntity) (*snapshot, error) {
	s := &snapshot{children: copyChildren(children)}
	if entity == e.meta {
		return s, nil
	}
	po, err := e.options.Executor.Entity2Model(entity, parent, OpQuery)
	if err != nil && !errors.Is(err, ErrEntityNotRegister) {
		return nil, err
	}
	s.po = po
	return s, nil
}

// resnapshot drops every snapshot and takes new ones of the whole tree.
func (e *Stage) resnapshot() error {
	e.snapshot = snapshotPool{}
	return walk(e.meta, nil, func(entity, parent IEntity, children map[string][]IEntity) error {
		s, err := e.snapshotOf(entity, parent, children)
		if err != nil {
			return err
		}
		e.snapshot[entity] = s
		return nil
	})
}

// track adds loaded roots to the container and snapshots them. The container
// snapshot only gains the new roots, so roots added earlier in the stage are
// still seen as new.
func (e *Stage) track(roots ...IEntity) error {
	for _, root := range roots {
		if err := e.meta.Add(root); err != nil {
			return err
		}
		err := walk(root, e.meta, func(entity, parent IEntity, children map[string][]IEntity) error {
			if e.snapshot[entity] != nil {
				return nil
			}
			s, err := e.snapshotOf(entity, parent, children)
			if err != nil {
				return err
			}
			e.snapshot[entity] = s
			return nil
		})
		if err != nil {
			return err
		}
	}

	metaSnap := e.snapshot[e.meta]
	if metaSnap == nil {
		metaSnap = &snapshot{children: map[string][]IEntity{}}
		e.snapshot[e.meta] = metaSnap
	}
	known := append([]IEntity(nil), metaSnap.children["meta"]...)
	metaSnap.children["meta"] = append(known, roots...)
	return nil
}

func (e *Stage) hasSnapshot(target IEntity) bool {
	return e.snapshot[target] != nil
}

func (e *Stage) changes() ([]*change, error) {
	changes, err := resolveMoves(diffChildren(e.meta, e.snapshot))
	if err != nil {
		return nil, err
	}
	if e.options.RecursiveDelete {
		changes = cascadeDeletes(changes)
	}
	return changes, nil
}

// assignIDs gives an id to every new entity that has none.
func (e *Stage) assignIDs(changes []*change) error {
	for _, c := range changes {
		if c.kind != kindNew {
			continue
		}
		for _, entity := range c.children {
			if entity.GetID() != "" {
				continue
			}
			id, err := e.options.IDGenerator.NewID()
			if err != nil {
				return err
			}
			entity.SetID(id)
		}
	}
	return nil
}

// actions converts changes into one Action per op and model type. Inserts
// come first, then updates, then deletes; within an op, model types keep the
// order they were first seen in.
func (e *Stage) actions(changes []*change) ([]*Action, error) {
	type group struct {
		op OpType
		t  reflect.Type
	}
	grouped := map[group]*Action{}
	seen := make([]reflect.Type, 0)
	for _, c := range changes {
		op := c.kind.op()
		for _, entity := range c.children {
			po, err := e.options.Executor.Entity2Model(entity, c.parent, op)
			if errors.Is(err, ErrEntityNotRegister) {
				e.logger.Info("skip unregistered entity", "type", reflect.TypeOf(entity))
				continue
			}
			if err != nil {
				return nil, err
			}

			key := group{op, reflect.TypeOf(po)}
			a := grouped[key]
			if a == nil {
				a = &Action{Op: op}
				grouped[key] = a
				seen = appendType(seen, key.t)
			}
			a.Models = append(a.Models, po)
			if op == OpUpdate {
				var prev IModel
				if s := e.snapshot[entity]; s != nil {
					prev = s.po
				}
				a.PrevModels = append(a.PrevModels, prev)
			}
		}
	}

	res := make([]*Action, 0, len(grouped))
	for _, op := range []OpType{OpInsert, OpUpdate, OpDelete} {
		for _, t := range seen {
			if a := grouped[group{op, t}]; a != nil {
				res = append(res, a)
			}
		}
	}
	return res, nil
}

func appendType(types []reflect.Type, t reflect.Type) []reflect.Type {
	for _, known := range types {
		if known == t {
			return types
		}
	}
	return append(types, t)
}

// persist writes the changes since the last snapshot, running the entity
// hooks around the writes.
func (e *Stage) persist(ctx context.Context) error {
	changes, err := e.changes()
	if err != nil {
		return err
	}
	if err := runHooks(ctx, changes, true); err != nil {
		return err
	}
	if err := e.assignIDs(changes); err != nil {
		return err
	}
	actions, err := e.actions(changes)
	if err != nil {
		return err
	}
	if err := e.exec(ctx, actions); err != nil {
		return err
	}
	if err := runHooks(ctx, changes, false); err != nil {
		return err
	}
	// removed children may still carry events to dispatch
	for _, c := range changes {
		if c.kind == kindDelete {
			for _, entity := range c.children {
				e.meta.Recycle(entity)
			}
		}
	}
	return nil
}

// commit persists, then makes the current tree the new baseline.
func (e *Stage) commit(ctx context.Context) error {
	if err := e.persist(ctx); err != nil {
		return err
	}
	if err := e.resnapshot(); err != nil {
		return err
	}
	return walk(e.meta, nil, func(entity, parent IEntity, children map[string][]IEntity) error {
		entity.UnDirty()
		return nil
	})
}

func (e *Stage) exec(ctx context.Context, actions []*Action) error {
	if e.options.DryRun {
		return nil
	}
	for _, a := range actions {
		if err := e.options.Executor.Exec(ctx, a); err != nil {
			return err
		}
	}
	e.result.Actions = append(e.result.Actions, actions...)
	return nil
}

func runHooks(ctx context.Context, changes []*change, before bool) error {
	for _, c := range changes {
		for _, entity := range c.children {
			if err := runHook(ctx, entity, c.kind, before); err != nil {
				return err
			}
		}
	}
	return nil
}

func runHook(ctx context.Context, entity IEntity, kind changeKind, before bool) error {
	var hook func(context.Context) error
	switch kind {
	case kindNew:
		if h, ok := entity.(IBeforeCreate); ok && before {
			hook = h.BeforeCreate
		} else if h, ok := entity.(IAfterCreate); ok && !before {
			hook = h.AfterCreate
		}
	case kindDirty:
		if h, ok := entity.(IBeforeUpdate); ok && before {
			hook = h.BeforeUpdate
		} else if h, ok := entity.(IAfterUpdate); ok && !before {
			hook = h.AfterUpdate
		}
	case kindDelete:
		if h, ok := entity.(IBeforeDelete); ok && before {
			hook = h.BeforeDelete
		} else if h, ok := entity.(IAfterDelete); ok && !before {
			hook = h.AfterDelete
		}
	}
	if hook == nil {
		return nil
	}
	return hook(ctx)
}
