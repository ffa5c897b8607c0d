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

package handler

import (
	"context"
	"time"

	"github.com/salesrecord/salesapi/biz/sale/application/command"
	"github.com/salesrecord/salesapi/biz/sale/application/query"
	"github.com/salesrecord/salesapi/biz/sale/domain"
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/dal"
	"github.com/salesrecord/salesapi/common/dto/sale"
	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/metrics"
)

// SaleServiceImpl runs sale commands on the engine and answers queries from
// the database. query.Init must have been called.
type SaleServiceImpl struct {
	engine  *ddd.Engine
	metrics *metrics.Metrics
}

func NewSaleService(engine *ddd.Engine, m *metrics.Metrics) *SaleServiceImpl {
	return &SaleServiceImpl{engine: engine, metrics: m}
}

func (s *SaleServiceImpl) run(ctx context.Context, name string, cmd interface{}, opts ...ddd.Option) error {
	start := time.Now()
	err := s.engine.Run(ctx, cmd, opts...).Error
	if s.metrics != nil {
		s.metrics.RecordCommand(name, err, time.Since(start))
	}
	return err
}

func (s *SaleServiceImpl) CreateSale(ctx context.Context, req *CreateSaleRequest) (*CreateSaleResponse, error) {
	items := make([]command.NewItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, command.NewItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	cmd := command.NewCreateSaleCommand(command.CreateSaleOpt{
		SaleNumber: req.SaleNumber,
		SaleDate:   req.SaleDate,
		Customer:   req.Customer,
		Branch:     req.Branch,
		Items:      items,
	})
	if err := s.run(ctx, "create_sale", cmd); err != nil {
		return nil, err
	}
	return &CreateSaleResponse{ID: cmd.Result.ID}, nil
}

func (s *SaleServiceImpl) UpdateSale(ctx context.Context, req *UpdateSaleRequest) (*sale.Sale, error) {
	items := make([]domain.ItemSpec, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.ItemSpec{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Cancelled:   it.IsCancelled,
		})
	}
	cmd := command.NewUpdateSaleCommand(req.ID, command.UpdateSaleOpt{
		SaleNumber: req.SaleNumber,
		SaleDate:   req.SaleDate,
		Customer:   req.Customer,
		Branch:     req.Branch,
		Cancel:     req.IsCancelled,
		Items:      items,
	})
	if err := s.run(ctx, "update_sale", cmd); err != nil {
		return nil, err
	}
	return cmd.Result, nil
}

func (s *SaleServiceImpl) DeleteSale(ctx context.Context, req *DeleteSaleRequest) error {
	cmd := command.NewDeleteSaleCommand(req.ID)
	return s.run(ctx, "delete_sale", cmd, cmd.Options()...)
}

func (s *SaleServiceImpl) CancelSale(ctx context.Context, req *CancelSaleRequest) (*sale.Sale, error) {
	cmd := command.NewCancelSaleCommand(req.ID)
	if err := s.run(ctx, "cancel_sale", cmd); err != nil {
		return nil, err
	}
	return cmd.Result, nil
}

func (s *SaleServiceImpl) GetSale(ctx context.Context, req *GetSaleRequest) (*sale.Sale, error) {
	return query.GetSale(ctx, req.ID)
}

func (s *SaleServiceImpl) ListSales(ctx context.Context, req *ListSalesRequest) (*ListSalesResponse, error) {
	items, total, err := query.ListSales(ctx, dal.SearchSaleOpt{
		Customer: req.Customer,
		Branch:   req.Branch,
		Offset:   req.Offset,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &ListSalesResponse{Items: items, Total: total}, nil
}
