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

package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleItem struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Discount        decimal.Decimal `json:"discount"`
	TotalItemAmount decimal.Decimal `json:"totalItemAmount"`
	IsCancelled     bool            `json:"isCancelled"`
}

type Sale struct {
	ID          string          `json:"id"`
	SaleNumber  int             `json:"saleNumber"`
	SaleDate    time.Time       `json:"saleDate"`
	Customer    string          `json:"customer"`
	Branch      string          `json:"branch"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	IsCancelled bool            `json:"isCancelled"`
	Items       []*SaleItem     `json:"items"`
}
