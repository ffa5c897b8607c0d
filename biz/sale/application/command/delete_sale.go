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
	"github.com/salesrecord/salesapi/ddd"
)

type DeleteSaleCommand struct {
	id string
}

func NewDeleteSaleCommand(id string) *DeleteSaleCommand {
	return &DeleteSaleCommand{id: id}
}

// Options must be passed to Engine.Run, without recursive delete the items
// of the sale would be left behind.
func (c *DeleteSaleCommand) Options() []ddd.Option {
	return []ddd.Option{ddd.WithRecursiveDelete}
}

func (c *DeleteSaleCommand) Init(ctx context.Context) ([]string, error) {
	return []string{c.id}, nil
}

func (c *DeleteSaleCommand) Main(ctx context.Context, r *ddd.Repository) error {
	ok, err := repo.NewSaleRepository(r).Delete(ctx, c.id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSaleNotFound
	}
	return nil
}
