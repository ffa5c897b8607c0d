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
)

// Repository is the stage bound view handed to a command's Main. Loaded roots
// are snapshotted, so the engine persists only what the command changed.
type Repository struct {
	stage *Stage
	errs  []error // collected by Add and Remove, reported by Save and at the end of Main
}

func (r *Repository) fail(err error) {
	r.errs = append(r.errs, err)
}

func (r *Repository) err() error {
	return errors.Join(r.errs...)
}

func (r *Repository) untracked(roots ...IEntity) error {
	for _, root := range roots {
		if r.stage.hasSnapshot(root) {
			return fmt.Errorf("%T %q: %w", root, root.GetID(), ErrAlreadyTracked)
		}
	}
	return nil
}

// Get loads root by its id, plus the optional children, and tracks them.
// children are pointers to child entities of root, *IEntity or *[]IEntity.
func (r *Repository) Get(ctx context.Context, root IEntity, children ...interface{}) error {
	if err := r.untracked(root); err != nil {
		return err
	}
	if err := r.stage.BuildEntity(ctx, root, children...); err != nil {
		return err
	}
	return r.stage.track(root)
}

// Build loads without tracking, for use inside a CustomGet getter.
func (r *Repository) Build(ctx context.Context, parent IEntity, children ...interface{}) error {
	return r.stage.BuildEntity(ctx, parent, children...)
}

func (r *Repository) CustomGet(ctx context.Context, getter func(ctx context.Context, roots ...IEntity) error, roots ...IEntity) error {
	if err := r.untracked(roots...); err != nil {
		return err
	}
	if err := getter(ctx, roots...); err != nil {
		return err
	}
	return r.stage.track(roots...)
}

// Add registers new roots, they are inserted on the next save.
func (r *Repository) Add(roots ...IEntity) {
	if err := r.untracked(roots...); err != nil {
		r.fail(err)
		return
	}
	for _, root := range roots {
		if err := r.stage.meta.Add(root); err != nil {
			r.fail(err)
			return
		}
	}
}

// Remove deletes roots. A root unknown to the stage is tracked on the spot,
// so an entity carrying only its id can be deleted without loading it.
func (r *Repository) Remove(roots ...IEntity) {
	var fresh []IEntity
	for _, root := range roots {
		if !r.stage.meta.Has(root) {
			fresh = append(fresh, root)
		}
	}
	if len(fresh) > 0 {
		if err := r.stage.track(fresh...); err != nil {
			r.fail(err)
			return
		}
	}
	for _, root := range roots {
		if err := r.stage.meta.Remove(root); err != nil {
			r.fail(err)
			return
		}
	}
}

// Save persists the pending changes inside the running transaction and takes
// a fresh snapshot. New entities get their ids here. Events wait for the end
// of the stage.
func (r *Repository) Save(ctx context.Context) error {
	if err := r.err(); err != nil {
		return err
	}
	return r.stage.commit(ctx)
}

func (r *Repository) Output(data interface{}) {
	r.stage.result.Output = data
}
