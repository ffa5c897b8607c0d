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
	"fmt"
	"reflect"
	"sort"
)

type changeKind int8

const (
	kindNew changeKind = iota
	kindDirty
	kindDelete
)

func (k changeKind) op() OpType {
	switch k {
	case kindNew:
		return OpInsert
	case kindDirty:
		return OpUpdate
	case kindDelete:
		return OpDelete
	}
	return OpUnknown
}

type snapshot struct {
	po       IModel // model of the entity when the snapshot was taken
	children map[string][]IEntity
}

type snapshotPool map[IEntity]*snapshot

// change groups the children of one parent relation that changed the same way.
type change struct {
	kind     changeKind
	parent   IEntity
	key      string
	children []IEntity
}

func (c *change) remove(entity IEntity) bool {
	i := 0
	for _, item := range c.children {
		if item != entity {
			c.children[i] = item
			i++
		}
	}
	if i == len(c.children) {
		return false
	}
	c.children = c.children[:i]
	return true
}

// partition splits the children of one relation into those added since the
// snapshot, those kept, and those gone. Each group keeps the order of the
// slice it came from.
func partition(now, before []IEntity) (added, kept, gone []IEntity) {
	prev := make(map[IEntity]bool, len(before))
	for _, e := range before {
		prev[e] = true
	}
	cur := make(map[IEntity]bool, len(now))
	for _, e := range now {
		cur[e] = true
		if prev[e] {
			kept = append(kept, e)
		} else {
			added = append(added, e)
		}
	}
	for _, e := range before {
		if !cur[e] {
			gone = append(gone, e)
		}
	}
	return added, kept, gone
}

func copyChildren(children map[string][]IEntity) map[string][]IEntity {
	res := make(map[string][]IEntity, len(children))
	for rel, list := range children {
		res[rel] = append([]IEntity(nil), list...)
	}
	return res
}

func recordChildren(entity IEntity, pool snapshotPool) {
	_ = walk(entity, nil, func(entity, parent IEntity, children map[string][]IEntity) error {
		if _, in := pool[entity]; in {
			return nil
		}
		pool[entity] = &snapshot{children: copyChildren(children)}
		return nil
	})
}

// findChildren prefers GetChildren and falls back to reflection over exported
// fields typed IEntity, []IEntity or map[any]IEntity.
func findChildren(entity IEntity) map[string][]IEntity {
	if children := entity.GetChildren(); children != nil {
		return children
	}
	v := reflect.Indirect(reflect.ValueOf(entity))
	if v.Kind() != reflect.Struct {
		return nil
	}
	children := make(map[string][]IEntity)
	for i := 0; i < v.NumField(); i++ {
		if list, ok := fieldEntities(v.Field(i)); ok {
			children[v.Type().Field(i).Name] = list
		}
	}
	return children
}

// fieldEntities reports whether f holds child entities and lists them. A nil
// single child yields an empty, non-nil list so its relation is still known.
func fieldEntities(f reflect.Value) ([]IEntity, bool) {
	if !f.CanInterface() {
		return nil, false
	}
	t := f.Type()
	if t.Implements(entityType) {
		if t == baseEntityType {
			return nil, false
		}
		if f.IsNil() {
			return []IEntity{}, true
		}
		return []IEntity{f.Interface().(IEntity)}, true
	}
	switch t.Kind() {
	case reflect.Slice:
		if !t.Elem().Implements(entityType) {
			return nil, false
		}
		list := make([]IEntity, f.Len())
		for i := range list {
			list[i] = f.Index(i).Interface().(IEntity)
		}
		return list, true
	case reflect.Map:
		if !t.Elem().Implements(entityType) {
			return nil, false
		}
		list := make([]IEntity, 0, f.Len())
		for it := f.MapRange(); it.Next(); {
			list = append(list, it.Value().Interface().(IEntity))
		}
		return list, true
	}
	return nil, false
}

// walk visits entity and its descendants depth first, parents before children.
func walk(entity, parent IEntity, f func(entity, parent IEntity, children map[string][]IEntity) error) error {
	children := findChildren(entity)
	if err := f(entity, parent, children); err != nil {
		return err
	}

	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, c := range children[k] {
			if err := walk(c, entity, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func relationNames(current map[string][]IEntity, prev *snapshot) []string {
	names := make([]string, 0, len(current))
	for rel := range current {
		names = append(names, rel)
	}
	if prev != nil {
		for rel := range prev.children {
			if _, ok := current[rel]; !ok {
				names = append(names, rel)
			}
		}
	}
	sort.Strings(names)
	return names
}

// diffChildren compares the current children of parent with the snapshot,
// recursively, and returns the changes per relation.
func diffChildren(parent IEntity, pool snapshotPool) []*change {
	var res []*change
	current := findChildren(parent)
	prev := pool[parent]
	for _, rel := range relationNames(current, prev) {
		var before []IEntity
		if prev != nil {
			before = prev.children[rel]
		}
		added, kept, gone := partition(current[rel], before)

		if len(added) > 0 {
			res = append(res, &change{kind: kindNew, parent: parent, key: rel, children: added})
			for _, child := range added {
				res = append(res, diffChildren(child, pool)...)
			}
		}
		var dirty []IEntity
		for _, child := range kept {
			if child.IsDirty() {
				dirty = append(dirty, child)
			}
		}
		if len(dirty) > 0 {
			res = append(res, &change{kind: kindDirty, parent: parent, key: rel, children: dirty})
		}
		for _, child := range kept {
			res = append(res, diffChildren(child, pool)...)
		}
		if len(gone) > 0 {
			res = append(res, &change{kind: kindDelete, parent: parent, key: rel, children: gone})
		}
	}
	return res
}

// resolveMoves turns "deleted under one parent, created under another" into an
// update. Any other entity appearing in two changes is an error.
func resolveMoves(changes []*change) ([]*change, error) {
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].kind < changes[j].kind
	})

	seen := map[IEntity]*change{}
	for _, item := range changes {
		for _, entity := range item.children {
			prev, ok := seen[entity]
			if !ok {
				seen[entity] = item
				continue
			}
			if prev.kind == kindNew && item.kind == kindDelete {
				item.remove(entity)
				prev.remove(entity)
				changes = append(changes, &change{
					kind:     kindDirty,
					parent:   prev.parent,
					key:      prev.key,
					children: []IEntity{entity},
				})
				seen[entity] = item
			} else {
				return nil, fmt.Errorf("entity(id=%s type=%v) repeated", entity.GetID(), reflect.TypeOf(entity))
			}
		}
	}
	return changes, nil
}

// cascadeDeletes adds delete changes for every descendant of a deleted entity.
func cascadeDeletes(changes []*change) []*change {
	for _, item := range changes {
		if item.kind != kindDelete {
			continue
		}
		for _, c := range item.children {
			_ = walk(c, item.parent, func(entity, parent IEntity, children map[string][]IEntity) error {
				for key, entities := range children {
					if len(entities) == 0 {
						continue
					}
					changes = append(changes, &change{
						kind:     kindDelete,
						parent:   entity,
						key:      key,
						children: entities,
					})
				}
				return nil
			})
		}
	}
	return changes
}
