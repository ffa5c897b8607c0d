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

	"github.com/salesrecord/salesapi/ddd"
)

// OutboxEvent is one dispatched event waiting in the outbox. Consumers read
// the table in ID order.
type OutboxEvent struct {
	ID          int64            `gorm:"primaryKey;autoIncrement"`
	EventID     string           `gorm:"size:64;index"`
	Event       *ddd.DomainEvent `gorm:"serializer:json;type:text"`
	PendingTxID int64            `gorm:"index"`
	EmittedAt   time.Time        `gorm:"index"`
	CreatedAt   time.Time        `gorm:"index"`
}

func (OutboxEvent) TableName() string {
	return "sales_outbox_event"
}

func newOutboxEvent(evt *ddd.DomainEvent, pendingTxID int64) *OutboxEvent {
	return &OutboxEvent{
		EventID:     evt.ID,
		Event:       evt,
		PendingTxID: pendingTxID,
		EmittedAt:   evt.CreatedAt,
	}
}

// PendingTx parks transactional events until the business transaction that
// emitted them reports its outcome, or until CheckAt when the checker decides.
type PendingTx struct {
	ID        int64              `gorm:"primaryKey;autoIncrement"`
	Consumer  string             `gorm:"size:30;index"`
	Events    []*ddd.DomainEvent `gorm:"serializer:json;type:text"`
	CheckAt   time.Time          `gorm:"index"`
	CreatedAt time.Time
}

func (PendingTx) TableName() string {
	return "sales_outbox_tx"
}

// Attempt is the retry state of one outbox row for one consumer.
type Attempt struct {
	EventID int64
	Count   int // retries done so far
	At      time.Time
}

// Consumer is the read position of one named consumer.
type Consumer struct {
	Name      string    `gorm:"primaryKey;size:30"`
	Offset    int64     `gorm:"column:consumed_offset"`
	Retry     []Attempt `gorm:"serializer:json;type:text"`
	Dead      []Attempt `gorm:"serializer:json;type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Consumer) TableName() string {
	return "sales_outbox_consumer"
}

// Tables lists the models to migrate before using an EventBus.
func Tables() []interface{} {
	return []interface{}{&OutboxEvent{}, &PendingTx{}, &Consumer{}}
}
