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

package query

import (
	"context"

	"gorm.io/gorm"

	"github.com/salesrecord/salesapi/biz/sale/application/query/pack"
	"github.com/salesrecord/salesapi/biz/sale/domain"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/dal"
	"github.com/salesrecord/salesapi/common/dto/sale"
)

var saleDAL *dal.DAL

func Init(db *gorm.DB) {
	saleDAL = dal.NewDAL(db)
}

// GetSale returns domain.ErrSaleNotFound when no sale has the id.
func GetSale(ctx context.Context, id string) (*sale.Sale, error) {
	salePO, err := saleDAL.GetSaleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if salePO == nil {
		return nil, domain.ErrSaleNotFound
	}
	items, err := saleDAL.GetSaleItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return pack.MakeSale(salePO, items), nil
}

// ListSales returns one page of sales with their items, plus the number of
// sales matching opt regardless of paging.
func ListSales(ctx context.Context, opt dal.SearchSaleOpt) ([]*sale.Sale, int64, error) {
	sales, total, err := saleDAL.GetSaleList(ctx, opt)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
	}
	items, err := saleDAL.GetSaleItems(ctx, ids...)
	if err != nil {
		return nil, 0, err
	}
	return pack.MakeSaleList(sales, items), total, nil
}
