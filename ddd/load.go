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
	"fmt"
	"reflect"
)

// query runs an OpQuery for probe and returns the matching models as a
// reflect slice of the model type.
func (e *Stage) query(ctx context.Context, probe, parent IEntity) (reflect.Value, error) {
	cond, err := e.options.Executor.Entity2Model(probe, parent, OpQuery)
	if err != nil {
		return reflect.Value{}, err
	}
	found := reflect.New(reflect.SliceOf(reflect.TypeOf(cond)))
	if err := e.options.Executor.Exec(ctx, &Action{Op: OpQuery, Query: cond, QueryResult: found.Interface()}); err != nil {
		return reflect.Value{}, err
	}
	return found.Elem(), nil
}

// BuildEntity loads parent by id, then each of children, which point to
// fields of parent typed as an entity or a slice of entities. A missing
// single child is left empty.
func (e *Stage) BuildEntity(ctx context.Context, parent IEntity, children ...interface{}) error {
	if parent.GetID() == "" {
		return fmt.Errorf("cannot load %T without id", parent)
	}
	if err := e.loadOne(ctx, parent, nil); err != nil {
		return err
	}

	for _, child := range children {
		t := reflect.TypeOf(child)
		switch {
		case t == nil || t.Kind() != reflect.Ptr:
			return fmt.Errorf("child %T must be a pointer", child)
		case t.Elem().Kind() == reflect.Slice:
			if err := e.loadMany(ctx, parent, child); err != nil {
				return err
			}
		case t.Implements(entityType):
			err := e.loadOne(ctx, child.(IEntity), parent)
			if err != nil && !errors.Is(err, ErrEntityNotFound) {
				return err
			}
		default:
			return fmt.Errorf("child %T is not an entity", child)
		}
	}
	return nil
}

// loadOne fills entity, found by its own id or else by its parent.
func (e *Stage) loadOne(ctx context.Context, entity, parent IEntity) error {
	if entity.GetID() == "" && (parent == nil || parent.GetID() == "") {
		return fmt.Errorf("cannot load %T without id", entity)
	}
	found, err := e.query(ctx, entity, parent)
	if err != nil {
		return err
	}
	if found.Len() == 0 {
		return ErrEntityNotFound
	}
	return e.options.Executor.Model2Entity(found.Index(0).Interface().(IModel), entity)
}

// loadMany appends every child of parent to the slice target points to.
func (e *Stage) loadMany(ctx context.Context, parent IEntity, target interface{}) error {
	slice := reflect.ValueOf(target).Elem()
	elem := slice.Type().Elem()
	if !elem.Implements(entityType) || elem.Kind() != reflect.Ptr {
		return fmt.Errorf("children %T must be a slice of entity pointers", target)
	}

	found, err := e.query(ctx, reflect.New(elem.Elem()).Interface().(IEntity), parent)
	if err != nil {
		return err
	}
	for i := 0; i < found.Len(); i++ {
		child := reflect.New(elem.Elem())
		if err := e.options.Executor.Model2Entity(found.Index(i).Interface().(IModel), child.Interface().(IEntity)); err != nil {
			return err
		}
		slice = reflect.Append(slice, child)
	}
	reflect.ValueOf(target).Elem().Set(slice)
	return nil
}
