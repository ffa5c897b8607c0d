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
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salesrecord/salesapi/ddd"
)

// DispatchBegin parks transactional events outside the business transaction,
// so resolvePending still finds them if the outcome is never reported.
func (b *EventBus) DispatchBegin(ctx context.Context, events ...*ddd.DomainEvent) (context.Context, error) {
	if len(events) == 0 {
		return ctx, fmt.Errorf("no events to park")
	}
	conn := b.plainConn(ctx)
	tx := &PendingTx{
		Consumer: b.name,
		Events:   events,
		CheckAt:  time.Now().Add(b.cfg.TxCheckAfter),
	}
	if err := conn.Create(tx).Error; err != nil {
		return ctx, err
	}
	return b.withPending(b.pinConn(ctx, conn), tx), nil
}

// Commit moves the parked events into the outbox. Committing again only
// drops the parked row.
func (b *EventBus) Commit(ctx context.Context) error {
	tx := b.pending(ctx)
	if tx == nil {
		return ErrNoPendingTx
	}
	ctx = b.pinConn(ctx, b.plainConn(ctx))
	conn := b.conn(ctx)

	var relayed int64
	if err := conn.Model(&OutboxEvent{}).Where("pending_tx_id = ?", tx.ID).Count(&relayed).Error; err != nil {
		return err
	}
	if relayed == 0 {
		if err := b.Dispatch(ctx, tx.Events...); err != nil {
			return err
		}
	}
	return conn.Delete(tx).Error
}

// Rollback discards the parked events.
func (b *EventBus) Rollback(ctx context.Context) error {
	tx := b.pending(ctx)
	if tx == nil {
		return ErrNoPendingTx
	}
	return b.plainConn(ctx).Delete(tx).Error
}

// resolvePending asks the checker about overdue pending transactions.
// TXUnknown leaves them for the next round.
func (b *EventBus) resolvePending() error {
	return b.db.Transaction(func(conn *gorm.DB) error {
		overdue := make([]*PendingTx, 0)
		err := conn.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("consumer = ? AND check_at < ?", b.name, time.Now()).
			Find(&overdue).Error
		if err != nil {
			return err
		}

		ctx := b.pinConn(context.Background(), conn)
		for _, tx := range overdue {
			if b.checker == nil || len(tx.Events) == 0 {
				continue
			}
			txCtx := b.withPending(ctx, tx)
			var err error
			switch b.checker(tx.Events[0]) {
			case ddd.TXCommit:
				err = b.Commit(txCtx)
			case ddd.TXRollBack:
				err = b.Rollback(txCtx)
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				b.log.Error(err, "resolve pending transaction failed", "pending_tx", tx.ID)
			}
		}
		return nil
	})
}
