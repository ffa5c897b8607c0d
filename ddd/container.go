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

// EntityContainer holds the aggregate roots of one stage. It is itself an
// entity so the snapshot machinery can diff roots like any other children.
type EntityContainer struct {
	BaseEntity

	roots   []IEntity
	deleted []IEntity // removed roots and recycled children, still holding events
}

func (w *EntityContainer) GetChildren() map[string][]IEntity {
	return map[string][]IEntity{"meta": w.roots}
}

func (w *EntityContainer) Has(root IEntity) bool {
	for _, r := range w.roots {
		if r == root {
			return true
		}
	}
	return false
}

func (w *EntityContainer) GetDeleted() []IEntity {
	return w.deleted
}

func (w *EntityContainer) Add(root IEntity) error {
	if w.Has(root) {
		return ErrEntityRepeated
	}
	// copy on write, the previous slice may be referenced by a snapshot
	roots := make([]IEntity, len(w.roots), len(w.roots)+1)
	copy(roots, w.roots)
	w.roots = append(roots, root)
	return nil
}

func (w *EntityContainer) Remove(root IEntity) error {
	roots := make([]IEntity, 0, len(w.roots))
	for _, item := range w.roots {
		if item != root {
			roots = append(roots, item)
		}
	}
	if len(roots) == len(w.roots) {
		return ErrEntityNotFound
	}
	w.roots = roots
	w.deleted = append(w.deleted, root)
	return nil
}

// Recycle keeps a deleted child around so its pending events are still collected.
func (w *EntityContainer) Recycle(e IEntity) {
	w.deleted = append(w.deleted, e)
}
