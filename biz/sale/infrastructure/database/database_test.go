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

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesrecord/salesapi/biz/sale/infrastructure/po"
)

func TestOpenSQLite(t *testing.T) {
	gdb, err := Open(DriverSQLite, "file:TestOpenSQLite?mode=memory&cache=shared", false)
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	assert.True(t, gdb.Migrator().HasTable(&po.SalePO{}))
	assert.True(t, gdb.Migrator().HasTable(&po.SaleItemPO{}))
	assert.True(t, gdb.Migrator().HasTable("sales_outbox_event"))
	assert.True(t, gdb.Migrator().HasTable("sales_resource_lock"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "", false)
	assert.Error(t, err)
}
