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

package db

import (
	"time"
)

// Lease is one held lock. Holder tells holders apart, so a holder whose lease
// expired cannot release or renew the lease someone else took over.
type Lease struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Resource  string `gorm:"size:255;uniqueIndex"`
	Holder    string `gorm:"size:64;index"`
	CreatedAt time.Time
	RenewedAt time.Time `gorm:"index"`
}

func (Lease) TableName() string {
	return "sales_resource_lock"
}
