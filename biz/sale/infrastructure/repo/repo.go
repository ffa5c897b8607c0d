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

package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/salesrecord/salesapi/biz/sale/domain"
	"github.com/salesrecord/salesapi/ddd"
)

// SaleRepository implements domain.SaleRepository on top of the stage bound
// ddd.Repository. Changes are written by diffing the tracked aggregates, so
// it only works inside an engine run.
type SaleRepository struct {
	repo *ddd.Repository
}

var _ domain.SaleRepository = (*SaleRepository)(nil)

func NewSaleRepository(repo *ddd.Repository) *SaleRepository {
	return &SaleRepository{repo: repo}
}

// Create inserts the sale and its items, ids are assigned on return.
func (r *SaleRepository) Create(ctx context.Context, sale *domain.Sale) (*domain.Sale, error) {
	r.repo.Add(sale)
	if err := r.repo.Save(ctx); err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *SaleRepository) GetByID(ctx context.Context, id string) (*domain.Sale, bool, error) {
	sale, err := r.load(ctx, id)
	if errors.Is(err, ddd.ErrEntityNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sale, true, nil
}

func (r *SaleRepository) load(ctx context.Context, id string) (*domain.Sale, error) {
	if id == "" {
		return nil, ddd.ErrEntityNotFound
	}
	sale := &domain.Sale{}
	sale.SetID(id)
	err := r.repo.CustomGet(ctx, func(ctx context.Context, roots ...ddd.IEntity) error {
		items := make([]*domain.SaleItem, 0)
		if err := r.repo.Build(ctx, sale, &items); err != nil {
			return err
		}
		sale.RestoreItems(items)
		return nil
	}, sale)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// Update writes what changed on a sale loaded by GetByID, removed items
// included.
func (r *SaleRepository) Update(ctx context.Context, sale *domain.Sale) (*domain.Sale, error) {
	if sale.GetID() == "" {
		return nil, fmt.Errorf("sale must have an id")
	}
	if err := r.repo.Save(ctx); err != nil {
		return nil, err
	}
	return sale, nil
}

// Delete removes the sale. Its items are removed too when the engine runs
// with recursive delete.
func (r *SaleRepository) Delete(ctx context.Context, id string) (bool, error) {
	sale, found, err := r.GetByID(ctx, id)
	if err != nil || !found {
		return false, err
	}
	r.repo.Remove(sale)
	if err := r.repo.Save(ctx); err != nil {
		return false, err
	}
	return true, nil
}
