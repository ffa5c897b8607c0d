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

package command

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salesrecord/salesapi/biz/sale/domain"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/repo"
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
)

type NewItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

type CreateSaleOpt struct {
	SaleNumber int
	SaleDate   time.Time
	Customer   string
	Branch     string
	Items      []NewItem
}

type CreateSaleCommand struct {
	opt CreateSaleOpt

	Result *sale.Sale
}

func NewCreateSaleCommand(opt CreateSaleOpt) *CreateSaleCommand {
	return &CreateSaleCommand{opt: opt}
}

func (c *CreateSaleCommand) Main(ctx context.Context, r *ddd.Repository) error {
	s := domain.NewSale(c.opt.SaleNumber, c.opt.SaleDate, c.opt.Customer, c.opt.Branch)
	for _, it := range c.opt.Items {
		item, err := domain.NewSaleItem(it.ProductID, it.ProductName, it.Quantity, it.UnitPrice)
		if err != nil {
			return err
		}
		s.AddItem(item)
	}

	created, err := repo.NewSaleRepository(r).Create(ctx, s)
	if err != nil {
		return err
	}
	// the event carries the ids assigned by Create
	created.RecordCreated()

	c.Result = created.Snapshot()
	r.Output(c.Result)
	return nil
}
