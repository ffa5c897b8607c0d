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

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-logr/logr"
	"github.com/segmentio/kafka-go"

	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/logger/stdr"
)

const (
	headerEventID   = "ddd-event-id"
	headerEventType = "ddd-event-type"
	headerSendType  = "ddd-send-type"
)

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Options struct {
	Brokers []string
	Topic   string
	GroupID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack

	MinBytes int
	MaxBytes int
	MaxWait  time.Duration

	HandleAttempts uint // handler calls per round, rounds repeat until the handler succeeds
	HandleDelay    time.Duration
	MaxBackoff     time.Duration // longest pause between rounds and after fetch errors

	Writer Writer
	Reader Reader
}

type Option func(opt *Options)

func WithWriter(w Writer) Option {
	return func(opt *Options) {
		opt.Writer = w
	}
}

func WithReader(r Reader) Option {
	return func(opt *Options) {
		opt.Reader = r
	}
}

// EventBus publishes every event as one message keyed by its sender, so the
// events of one aggregate land in one partition and keep their order.
type EventBus struct {
	opt    Options
	writer Writer
	reader Reader
	cb     ddd.DomainEventHandler
	logger logr.Logger
}

func NewEventBus(brokers []string, topic, groupID string, options ...Option) *EventBus {
	opt := Options{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		BatchSize:      100,
		BatchTimeout:   10 * time.Millisecond,
		RequiredAcks:   -1,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		HandleAttempts: 3,
		HandleDelay:    100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
	}
	for _, o := range options {
		o(&opt)
	}
	if opt.HandleAttempts == 0 {
		opt.HandleAttempts = 1
	}

	eb := &EventBus{
		opt:    opt,
		writer: opt.Writer,
		reader: opt.Reader,
		logger: stdr.NewStdr("kafka_eventbus").WithValues("topic", topic),
	}
	if eb.writer == nil {
		eb.writer = &kafka.Writer{
			Addr:         kafka.TCP(opt.Brokers...),
			Topic:        opt.Topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    opt.BatchSize,
			BatchTimeout: opt.BatchTimeout,
			RequiredAcks: kafka.RequiredAcks(opt.RequiredAcks),
		}
	}
	if eb.reader == nil {
		eb.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  opt.Brokers,
			GroupID:  opt.GroupID,
			Topic:    opt.Topic,
			MinBytes: opt.MinBytes,
			MaxBytes: opt.MaxBytes,
			MaxWait:  opt.MaxWait,
		})
	}
	return eb
}

func encodeMessage(evt *ddd.DomainEvent) (kafka.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(evt.Sender),
		Value: data,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(evt.ID)},
			{Key: headerEventType, Value: []byte(evt.Type)},
			{Key: headerSendType, Value: []byte(evt.SendType)},
		},
		Time: evt.CreatedAt,
	}, nil
}

func decodeMessage(msg kafka.Message) (*ddd.DomainEvent, error) {
	evt := &ddd.DomainEvent{}
	if err := json.Unmarshal(msg.Value, evt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return evt, nil
}

// Dispatch writes the events synchronously. A write error fails the stage and
// rolls back its transaction.
func (e *EventBus) Dispatch(ctx context.Context, events ...*ddd.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		msg, err := encodeMessage(evt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := e.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", e.opt.Topic, err)
	}
	return nil
}

func (e *EventBus) RegisterEventHandler(cb ddd.DomainEventHandler) {
	e.cb = cb
}

func (e *EventBus) handle(ctx context.Context, msg kafka.Message) error {
	evt, err := decodeMessage(msg)
	if err != nil {
		// undecodable messages would block the partition forever
		e.logger.Error(err, "drop invalid message", "offset", msg.Offset)
		return e.reader.CommitMessages(ctx, msg)
	}
	// a failing message holds back its partition, committing a later offset
	// would skip it
	for round := 0; ; round++ {
		err = retry.Do(
			func() error {
				return e.cb(ctx, evt)
			},
			retry.Context(ctx),
			retry.Attempts(e.opt.HandleAttempts),
			retry.Delay(e.opt.HandleDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
		)
		if err == nil {
			return e.reader.CommitMessages(ctx, msg)
		}
		e.logger.Error(err, "handle event failed", "event_id", evt.ID, "type", evt.Type, "round", round)
		if !e.pause(ctx, round) {
			return ctx.Err()
		}
	}
}

// pause waits HandleDelay doubled round times, at most MaxBackoff. It
// returns false when ctx ends first.
func (e *EventBus) pause(ctx context.Context, round int) bool {
	if round > 30 {
		round = 30
	}
	d := e.opt.HandleDelay << uint(round)
	if d <= 0 || d > e.opt.MaxBackoff {
		d = e.opt.MaxBackoff
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Start consumes the topic until ctx is done or the reader is closed.
// Offsets are committed only after the handler succeeded.
func (e *EventBus) Start(ctx context.Context) error {
	if e.cb == nil {
		return errors.New("no event handler registered")
	}
	e.logger.Info("start consumer", "group", e.opt.GroupID)
	failures := 0
	for {
		msg, err := e.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			e.logger.Error(err, "fetch message failed", "failures", failures+1)
			if !e.pause(ctx, failures) {
				return nil
			}
			failures++
			continue
		}
		failures = 0
		if err := e.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.logger.Error(err, "commit message failed", "offset", msg.Offset)
		}
	}
}

func (e *EventBus) Close() error {
	return errors.Join(e.writer.Close(), e.reader.Close())
}
