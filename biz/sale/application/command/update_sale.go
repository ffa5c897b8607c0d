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

	"github.com/salesrecord/salesapi/biz/sale/domain"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/repo"
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
)

type UpdateSaleOpt struct {
	SaleNumber int
	SaleDate   time.Time
	Customer   string
	Branch     string
	Cancel     bool
	Items      []domain.ItemSpec
}

// UpdateSaleCommand replaces the header and the item list of a sale. Items
// are matched by id; unknown lines are added and missing lines removed.
type UpdateSaleCommand struct {
	id  string
	opt UpdateSaleOpt

	Result *sale.Sale
}

func NewUpdateSaleCommand(id string, opt UpdateSaleOpt) *UpdateSaleCommand {
	return &UpdateSaleCommand{id: id, opt: opt}
}

func (c *UpdateSaleCommand) Init(ctx context.Context) ([]string, error) {
	return []string{c.id}, nil
}

func (c *UpdateSaleCommand) Main(ctx context.Context, r *ddd.Repository) error {
	saleRepo := repo.NewSaleRepository(r)
	s, found, err := saleRepo.GetByID(ctx, c.id)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrSaleNotFound
	}

	s.UpdateDetails(c.opt.SaleNumber, c.opt.SaleDate, c.opt.Customer, c.opt.Branch)
	if err := s.Reconcile(c.opt.Items); err != nil {
		return err
	}
	if _, err := saleRepo.Update(ctx, s); err != nil {
		return err
	}

	// new lines have ids now, so their cancellation events carry them
	if c.opt.Cancel && !s.IsCancelled() {
		s.Cancel()
		if _, err := saleRepo.Update(ctx, s); err != nil {
			return err
		}
	}

	c.Result = s.Snapshot()
	r.Output(c.Result)
	return nil
}
