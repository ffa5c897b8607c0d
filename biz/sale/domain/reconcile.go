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

package domain

import (
	"github.com/shopspring/decimal"
)

// ItemSpec is the wanted state of one line. ID is empty for new lines.
type ItemSpec struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Cancelled   bool
}

// Reconcile merges targets into the current items: items missing from targets
// are removed, matched items get the target quantity and are cancelled when
// asked, everything else becomes a new item. Unit price and product of
// existing items are kept. A cancelled item is never reactivated.
//
// A repeated id updates the same item again, so its last quantity stands. It
// stops at the first error and keeps the changes made so far.
func (s *Sale) Reconcile(targets []ItemSpec) error {
	wanted := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t.ID != "" {
			wanted[t.ID] = true
		}
	}
	current := make(map[string]*SaleItem, len(s.items))
	for _, item := range s.Items() {
		if item.GetID() != "" && wanted[item.GetID()] {
			current[item.GetID()] = item
		} else {
			s.removeItem(item)
		}
	}

	for _, t := range targets {
		if item, ok := current[t.ID]; ok && t.ID != "" {
			if err := item.SetQuantity(t.Quantity); err != nil {
				return err
			}
			if t.Cancelled && !item.IsCancelled() {
				item.Cancel(s.GetID())
			}
			s.calTotal()
			continue
		}
		item, err := NewSaleItem(t.ProductID, t.ProductName, t.Quantity, t.UnitPrice)
		if err != nil {
			return err
		}
		s.AddItem(item)
	}
	return nil
}
