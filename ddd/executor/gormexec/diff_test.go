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

package gormexec

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

type diffPO struct {
	Audit `gorm:"embedded;embeddedPrefix:audit_"`

	ID      string
	Label   string `gorm:"column:title"`
	Count   int
	Ref     *int
	SameRef *int
	Tags    []string
	Price   decimal.Decimal
	Cost    decimal.Decimal
	Scratch string `gorm:"-"`
}

func TestDiffModel(t *testing.T) {
	one, two := 1, 2
	now := time.Now()
	a := diffPO{
		Audit:   Audit{CreatedAt: now.Add(time.Minute), UpdatedAt: now},
		ID:      "a",
		Label:   "same",
		Count:   3,
		Ref:     &one,
		SameRef: &one,
		Tags:    []string{"x"},
		Price:   decimal.RequireFromString("1.50"),
		Cost:    decimal.RequireFromString("2"),
		Scratch: "a",
	}
	b := diffPO{
		Audit:   Audit{UpdatedAt: now},
		ID:      "b",
		Label:   "same",
		Count:   4,
		Ref:     &two,
		SameRef: &one,
		Tags:    []string{"y"},
		Price:   decimal.RequireFromString("1.25"),
		Cost:    decimal.RequireFromString("2.00"),
		Scratch: "b",
	}

	assert.ElementsMatch(t, []string{"audit_created_at", "id", "count", "ref", "tags", "price"}, DiffModel(a, &b))
	assert.Empty(t, DiffModel(&a, a))
	assert.Nil(t, DiffModel(a, "a"))
}
