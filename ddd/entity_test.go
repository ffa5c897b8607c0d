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
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseEntity(t *testing.T) {
	o := &ticket{BaseEntity: NewBase("o1")}
	assert.Equal(t, "o1", o.GetID())
	assert.False(t, o.IsDirty())

	o.Dirty()
	assert.True(t, o.IsDirty())
	o.UnDirty()
	assert.False(t, o.IsDirty())

	o.SetID("o2")
	assert.Equal(t, "o2", o.GetID())
	assert.Nil(t, o.GetChildren())

	evt := o.AddEvent(&testEvent{Data: "x"})
	assert.Equal(t, []*DomainEvent{evt}, o.GetEvents())
	assert.Equal(t, []*DomainEvent{evt}, o.DrainEvents())
	assert.Empty(t, o.GetEvents())
}

func TestSameEntity(t *testing.T) {
	a := &ticket{BaseEntity: NewBase("1")}
	b := &ticket{BaseEntity: NewBase("1")}
	c := &line{BaseEntity: NewBase("1")}
	d := &ticket{}

	assert.True(t, SameEntity(a, b))
	assert.False(t, SameEntity(a, c))
	assert.False(t, SameEntity(d, &ticket{}))
	assert.False(t, SameEntity(a, nil))
}

func TestCompareByID(t *testing.T) {
	entities := []IEntity{
		&ticket{BaseEntity: NewBase("b")},
		&ticket{},
		&ticket{BaseEntity: NewBase("c")},
		&ticket{BaseEntity: NewBase("a")},
	}
	sort.SliceStable(entities, func(i, j int) bool {
		return CompareByID(entities[i], entities[j]) < 0
	})
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.GetID())
	}
	assert.Equal(t, []string{"c", "b", "a", ""}, ids)
}
