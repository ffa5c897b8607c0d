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

package po

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleItemPO rows are removed with their sale by the engine, not by a
// foreign key.
type SaleItemPO struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)"`
	SaleID          string          `gorm:"type:varchar(36);not null;index"`
	ProductID       string          `gorm:"type:varchar(36);not null"`
	ProductName     string          `gorm:"type:varchar(255);not null"`
	Quantity        int             `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Discount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalItemAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IsCancelled     bool            `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *SaleItemPO) GetID() string {
	return s.ID
}

func (s *SaleItemPO) TableName() string {
	return "sale_items"
}
