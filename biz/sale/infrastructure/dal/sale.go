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

package dal

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/salesrecord/salesapi/biz/sale/infrastructure/po"
)

type DAL struct {
	db *gorm.DB
}

func NewDAL(db *gorm.DB) *DAL {
	return &DAL{db: db}
}

// GetSaleByID returns nil when the sale does not exist.
func (d DAL) GetSaleByID(ctx context.Context, id string) (*po.SalePO, error) {
	sale := &po.SalePO{}
	if err := d.db.WithContext(ctx).First(sale, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sale, nil
}

func (d DAL) GetSaleItems(ctx context.Context, saleIDs ...string) ([]*po.SaleItemPO, error) {
	pos := make([]*po.SaleItemPO, 0)
	if len(saleIDs) == 0 {
		return pos, nil
	}
	if err := d.db.WithContext(ctx).Where("sale_id IN ?", saleIDs).Order("created_at, id").Find(&pos).Error; err != nil {
		return nil, err
	}
	return pos, nil
}

type SearchSaleOpt struct {
	Customer *string
	Branch   *string
	Offset   *int
	Limit    *int
}

func (d DAL) GetSaleList(ctx context.Context, opt SearchSaleOpt) ([]*po.SalePO, int64, error) {
	db := d.db.WithContext(ctx).Model(&po.SalePO{})
	if opt.Customer != nil {
		db = db.Where("customer = ?", *opt.Customer)
	}
	if opt.Branch != nil {
		db = db.Where("branch = ?", *opt.Branch)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if opt.Offset != nil {
		db = db.Offset(*opt.Offset)
	}
	if opt.Limit != nil {
		db = db.Limit(*opt.Limit)
	}
	result := make([]*po.SalePO, 0)
	if err := db.Order("sale_date DESC, id").Find(&result).Error; err != nil {
		return nil, 0, err
	}
	return result, total, nil
}
