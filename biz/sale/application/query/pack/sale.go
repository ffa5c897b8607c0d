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

package pack

import (
	"github.com/salesrecord/salesapi/biz/sale/infrastructure/po"
	"github.com/salesrecord/salesapi/common/dto/sale"
)

func MakeSaleItem(po *po.SaleItemPO) *sale.SaleItem {
	return &sale.SaleItem{
		ID:              po.ID,
		ProductID:       po.ProductID,
		ProductName:     po.ProductName,
		Quantity:        po.Quantity,
		UnitPrice:       po.UnitPrice,
		Discount:        po.Discount,
		TotalItemAmount: po.TotalItemAmount,
		IsCancelled:     po.IsCancelled,
	}
}

func MakeSaleItemList(pos []*po.SaleItemPO) []*sale.SaleItem {
	result := make([]*sale.SaleItem, 0)
	for _, po := range pos {
		result = append(result, MakeSaleItem(po))
	}
	return result
}

func MakeSale(salePO *po.SalePO, items []*po.SaleItemPO) *sale.Sale {
	return &sale.Sale{
		ID:          salePO.ID,
		SaleNumber:  salePO.SaleNumber,
		SaleDate:    salePO.SaleDate,
		Customer:    salePO.Customer,
		Branch:      salePO.Branch,
		TotalAmount: salePO.TotalAmount,
		IsCancelled: salePO.IsCancelled,
		Items:       MakeSaleItemList(items),
	}
}

// MakeSaleList keeps the order of sales, items are matched by sale id.
func MakeSaleList(sales []*po.SalePO, items []*po.SaleItemPO) []*sale.Sale {
	bySale := make(map[string][]*po.SaleItemPO, len(sales))
	for _, item := range items {
		bySale[item.SaleID] = append(bySale[item.SaleID], item)
	}
	result := make([]*sale.Sale, 0, len(sales))
	for _, s := range sales {
		result = append(result, MakeSale(s, bySale[s.ID]))
	}
	return result
}
