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
	"time"

	"github.com/shopspring/decimal"

	"github.com/salesrecord/salesapi/common/dto/sale"
)

type SaleItemRequest struct {
	ID          string          `json:"id" binding:"max=36"` // empty for new lines, ignored on create
	ProductID   string          `json:"productId" binding:"max=36"`
	ProductName string          `json:"productName" binding:"required,max=255"`
	Quantity    int             `json:"quantity" binding:"gt=0,lte=20"`
	UnitPrice   decimal.Decimal `json:"unitPrice" binding:"gt=0"`
	IsCancelled bool            `json:"isCancelled"`
}

type CreateSaleRequest struct {
	SaleNumber int               `json:"saleNumber" binding:"gt=0"`
	SaleDate   time.Time         `json:"saleDate" binding:"required"`
	Customer   string            `json:"customer" binding:"required,max=255"`
	Branch     string            `json:"branch" binding:"required,max=100"`
	Items      []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CreateSaleResponse struct {
	ID string `json:"id"`
}

type UpdateSaleRequest struct {
	ID          string            `json:"-"`
	SaleNumber  int               `json:"saleNumber" binding:"gt=0"`
	SaleDate    time.Time         `json:"saleDate" binding:"required"`
	Customer    string            `json:"customer" binding:"required,max=255"`
	Branch      string            `json:"branch" binding:"required,max=100"`
	IsCancelled bool              `json:"isCancelled"`
	Items       []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

type GetSaleRequest struct {
	ID string
}

type DeleteSaleRequest struct {
	ID string
}

type CancelSaleRequest struct {
	ID string
}

type ListSalesRequest struct {
	Customer *string `form:"customer"`
	Branch   *string `form:"branch"`
	Offset   *int    `form:"offset" binding:"omitempty,min=0"`
	Limit    *int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type ListSalesResponse struct {
	Items []*sale.Sale `json:"items"`
	Total int64        `json:"total"`
}

// Response is the envelope of every /api response.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
