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

type SalePO struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)"`
	SaleNumber  int             `gorm:"not null;index"`
	SaleDate    time.Time       `gorm:"not null"`
	Customer    string          `gorm:"type:varchar(255);not null;index"`
	Branch      string          `gorm:"type:varchar(100);not null;index"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IsCancelled bool            `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *SalePO) GetID() string {
	return s.ID
}

func (s *SalePO) TableName() string {
	return "sales"
}
