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

import "context"

// SaleRepository persists whole aggregates. A missing sale is reported as
// (nil, false, nil) by GetByID and false by Delete, never as an error.
type SaleRepository interface {
	Create(ctx context.Context, sale *Sale) (*Sale, error)
	GetByID(ctx context.Context, id string) (*Sale, bool, error)
	Update(ctx context.Context, sale *Sale) (*Sale, error)
	Delete(ctx context.Context, id string) (bool, error)
}
