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

	"github.com/salesrecord/salesapi/biz/sale/domain"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/repo"
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
)

type CancelSaleCommand struct {
	id string

	Result *sale.Sale
}

func NewCancelSaleCommand(id string) *CancelSaleCommand {
	return &CancelSaleCommand{id: id}
}

func (c *CancelSaleCommand) Init(ctx context.Context) ([]string, error) {
	return []string{c.id}, nil
}

// Main cancels every item and then the sale. Cancelling a cancelled sale
// changes nothing and emits nothing.
func (c *CancelSaleCommand) Main(ctx context.Context, r *ddd.Repository) error {
	saleRepo := repo.NewSaleRepository(r)
	s, found, err := saleRepo.GetByID(ctx, c.id)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrSaleNotFound
	}
	if !s.IsCancelled() {
		s.Cancel()
		if _, err := saleRepo.Update(ctx, s); err != nil {
			return err
		}
	}

	c.Result = s.Snapshot()
	r.Output(c.Result)
	return nil
}
