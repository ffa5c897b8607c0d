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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/testsuit"
)

func openDB(t *testing.T) *gorm.DB {
	db := testsuit.InitSQLite(t.Name())
	require.NoError(t, db.AutoMigrate(&Lease{}))
	return db
}

func TestLockAndTakeOver(t *testing.T) {
	ctx := context.Background()
	lock := NewDBLock(openDB(t), 1200*time.Millisecond, WithoutRetry())

	first, err := lock.Lock(ctx, "sale-1")
	require.NoError(t, err)
	_, err = lock.Lock(ctx, "sale-1")
	assert.ErrorIs(t, err, ddd.ErrEntityLocked)

	other, err := lock.Lock(ctx, "sale-2")
	require.NoError(t, err)
	require.NoError(t, lock.UnLock(ctx, other))

	time.Sleep(1300 * time.Millisecond)
	second, err := lock.Lock(ctx, "sale-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.(*Lease).Holder, second.(*Lease).Holder)

	assert.Error(t, lock.UnLock(ctx, first))
	assert.NoError(t, lock.UnLock(ctx, second))
}

func TestUnLockFreesKey(t *testing.T) {
	ctx := context.Background()
	lock := NewDBLock(openDB(t), 5*time.Second, WithoutRetry())

	l, err := lock.Lock(ctx, "sale-1")
	require.NoError(t, err)
	require.NoError(t, lock.UnLock(ctx, l))
	_, err = lock.Lock(ctx, "sale-1")
	assert.NoError(t, err)

	assert.Error(t, lock.UnLock(ctx, "sale-1"))
}

func TestLockRetriesThenGivesUp(t *testing.T) {
	ctx := context.Background()
	lock := NewDBLock(openDB(t), 5*time.Second, WithRetry(3, 10*time.Millisecond))
	_, err := lock.Lock(ctx, "sale-1")
	require.NoError(t, err)

	start := time.Now()
	_, err = lock.Lock(ctx, "sale-1")
	assert.ErrorIs(t, err, ddd.ErrEntityLocked)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRunRenewsLease(t *testing.T) {
	ctx := context.Background()
	lock := NewDBLock(openDB(t), time.Second, WithoutRetry(), WithRenewInterval(300*time.Millisecond))

	started, done := make(chan struct{}), make(chan error)
	go func() {
		done <- lock.Run(ctx, "sale-1", func(ctx context.Context) {
			close(started)
			time.Sleep(1500 * time.Millisecond)
			assert.NoError(t, ctx.Err())
		})
	}()
	<-started
	time.Sleep(1200 * time.Millisecond)
	_, err := lock.Lock(ctx, "sale-1")
	assert.ErrorIs(t, err, ddd.ErrEntityLocked)
	require.NoError(t, <-done)

	_, err = lock.Lock(ctx, "sale-1")
	assert.NoError(t, err)
}

func TestTTLMustExceedRenewInterval(t *testing.T) {
	assert.Panics(t, func() {
		NewDBLock(nil, time.Second)
	})
}
