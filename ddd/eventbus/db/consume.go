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
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salesrecord/salesapi/ddd"
)

// consume runs one delivery round while holding the consumer row: due
// retries first, then the next batch after the offset.
func (b *EventBus) consume() error {
	if b.handler == nil {
		return nil
	}
	return b.db.Transaction(func(conn *gorm.DB) error {
		c := &Consumer{}
		err := conn.Clauses(clause.Locking{Strength: "UPDATE"}).Where("name = ?", b.name).First(c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConsumerMissing
		}
		if err != nil {
			return err
		}

		fresh, err := b.nextBatch(conn, c)
		if err != nil {
			return err
		}
		due, err := b.dueRetries(conn, c)
		if err != nil {
			return err
		}
		if len(fresh)+len(due) == 0 {
			return nil
		}
		b.log.V(1).Info("consume", "fresh", len(fresh), "retry", len(due))

		rows := append(due, fresh...)
		failed := b.deliver(context.Background(), rows)
		b.reschedule(c, due, failed)
		if len(fresh) > 0 {
			c.Offset = fresh[len(fresh)-1].ID
		}
		return conn.Save(c).Error
	})
}

func (b *EventBus) nextBatch(conn *gorm.DB, c *Consumer) ([]*OutboxEvent, error) {
	if c.Offset == 0 {
		switch {
		case b.cfg.StartOffset != nil:
			c.Offset = *b.cfg.StartOffset
		default:
			latest := &OutboxEvent{}
			err := conn.Order("id DESC").First(latest).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			// the latest event itself is still delivered
			c.Offset = latest.ID - 1
		}
	}
	rows := make([]*OutboxEvent, 0)
	err := conn.Where("id > ?", c.Offset).Order("id").Limit(b.cfg.BatchSize).Find(&rows).Error
	return rows, err
}

func (b *EventBus) dueRetries(conn *gorm.DB, c *Consumer) ([]*OutboxEvent, error) {
	now := time.Now()
	ids := make([]int64, 0)
	for _, a := range c.Retry {
		if !a.At.After(now) {
			ids = append(ids, a.EventID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows := make([]*OutboxEvent, 0, len(ids))
	err := conn.Where("id IN ?", ids).Order("id").Find(&rows).Error
	return rows, err
}

// reschedule rebuilds the retry list of c: retries not attempted this round
// stay, failed rows get their next attempt or go to the dead list.
func (b *EventBus) reschedule(c *Consumer, attempted []*OutboxEvent, failed []int64) {
	tried := make(map[int64]bool, len(attempted))
	for _, row := range attempted {
		tried[row.ID] = true
	}
	prev := make(map[int64]Attempt, len(c.Retry))
	retry := make([]Attempt, 0, len(c.Retry)+len(failed))
	for _, a := range c.Retry {
		prev[a.EventID] = a
		if !tried[a.EventID] {
			retry = append(retry, a)
		}
	}
	for _, id := range failed {
		a, ok := prev[id]
		if !ok {
			a = Attempt{EventID: id}
		}
		if next, ok := b.cfg.Retry.Next(a); ok {
			retry = append(retry, next)
		} else {
			c.Dead = append(c.Dead, a)
		}
	}
	c.Retry = retry
}

// deliver hands rows to the handler on cfg.Workers goroutines and returns the
// ids that failed. Rows sent FIFO or LaxFIFO run in order per sender on one
// goroutine. After a FIFO failure the sender's later rows of the round fail
// without being delivered.
func (b *EventBus) deliver(ctx context.Context, rows []*OutboxEvent) []int64 {
	var mu sync.Mutex
	failed := make([]int64, 0)
	fail := func(id int64) {
		mu.Lock()
		failed = append(failed, id)
		mu.Unlock()
	}

	queue := make(chan []*OutboxEvent, len(rows))
	bySender := make(map[string][]*OutboxEvent)
	order := make([]string, 0)
	for _, row := range rows {
		switch row.Event.SendType {
		case ddd.SendTypeFIFO, ddd.SendTypeLaxFIFO:
			s := row.Event.Sender
			if _, seen := bySender[s]; !seen {
				order = append(order, s)
			}
			bySender[s] = append(bySender[s], row)
		default:
			queue <- []*OutboxEvent{row}
		}
	}
	for _, s := range order {
		queue <- bySender[s]
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < b.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range queue {
				blocked := false
				for _, row := range group {
					if blocked {
						b.log.V(1).Info("skip event behind a failed one", "id", row.ID, "sender", row.Event.Sender)
						fail(row.ID)
						continue
					}
					if err := b.handler(ctx, row.Event); err != nil {
						b.log.Error(err, "handle event failed", "id", row.ID, "type", row.Event.Type)
						fail(row.ID)
						blocked = row.Event.SendType == ddd.SendTypeFIFO
					}
				}
			}
		}()
	}
	wg.Wait()
	return failed
}

// purge deletes outbox rows every consumer has read and that are older than
// the retention. Rows still retried or dead are kept.
func (b *EventBus) purge() error {
	consumers := make([]*Consumer, 0)
	if err := b.db.Find(&consumers).Error; err != nil {
		return err
	}
	if len(consumers) == 0 {
		return nil
	}
	keep := map[int64]bool{}
	low := consumers[0].Offset
	for _, c := range consumers {
		for _, a := range c.Retry {
			keep[a.EventID] = true
		}
		for _, a := range c.Dead {
			keep[a.EventID] = true
		}
		if c.Offset < low {
			low = c.Offset
		}
	}
	// a consumer that never read anything holds every row
	if low == 0 {
		return nil
	}
	last := &OutboxEvent{}
	if err := b.db.First(last, low).Error; err != nil {
		return fmt.Errorf("load last consumed event: %w", err)
	}
	before := time.Now().Add(-b.cfg.Retention)
	if last.CreatedAt.Before(before) {
		before = last.CreatedAt
	}

	ids := make([]int64, 0)
	if err := b.db.Model(&OutboxEvent{}).
		Where("created_at < ? AND id <= ?", before, low).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	drop := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !keep[id] {
			drop = append(drop, id)
		}
	}
	const chunk = 100
	for start := 0; start < len(drop); start += chunk {
		end := start + chunk
		if end > len(drop) {
			end = len(drop)
		}
		if err := b.db.Where("id IN ?", drop[start:end]).Delete(&OutboxEvent{}).Error; err != nil {
			return err
		}
	}
	return nil
}
