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

package ddd

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

var ErrNoEventBusFound = fmt.Errorf("no eventbus found")

type EventType string

// SendType tells the bus how an event must be delivered.
type SendType string

const (
	SendTypeNormal      SendType = "normal"
	SendTypeFIFO        SendType = "FIFO"        // in sender order, a failure holds back the sender's later events
	SendTypeLaxFIFO     SendType = "LaxFIFO"     // in sender order, failures do not hold anything back
	SendTypeTransaction SendType = "transaction" // only once the emitting transaction has committed
)

type EventOption struct {
	SendType SendType
}

type EventOpt func(opt *EventOption)

func WithSendType(t SendType) EventOpt {
	return func(opt *EventOption) {
		opt.SendType = t
	}
}

// TXStatus is the answer of a transaction checker.
type TXStatus int

const (
	TXUnknown  TXStatus = iota // ask again later
	TXCommit
	TXRollBack
)

type IEvent interface {
	GetType() EventType
	// GetSender returns the id of the emitting aggregate, FIFO delivery is per sender.
	GetSender() string
}

// DomainEvent is the envelope buses carry. Payload is the JSON of the IEvent
// it was built from.
type DomainEvent struct {
	ID        string
	Type      EventType
	SendType  SendType
	Sender    string
	Payload   []byte
	Seq       uint64
	CreatedAt time.Time
}

func (d *DomainEvent) GetType() EventType {
	return d.Type
}

func (d *DomainEvent) GetSender() string {
	return d.Sender
}

var lastSeq uint64

// NewDomainEvent wraps event. The payload is encoded right away, so later
// changes to event are not seen by handlers. Seq grows with every call in the
// process and orders events emitted by different entities.
func NewDomainEvent(event IEvent, opts ...EventOpt) *DomainEvent {
	opt := EventOption{SendType: SendTypeNormal}
	for _, o := range opts {
		o(&opt)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		panic(fmt.Sprintf("encode event %T: %v", event, err))
	}
	return &DomainEvent{
		ID:        xid.New().String(),
		Type:      event.GetType(),
		SendType:  opt.SendType,
		Sender:    event.GetSender(),
		Payload:   payload,
		Seq:       atomic.AddUint64(&lastSeq, 1),
		CreatedAt: time.Now(),
	}
}

type DomainEventHandler func(ctx context.Context, evt *DomainEvent) error

type DomainEventTXChecker func(evt *DomainEvent) TXStatus

type IEventBus interface {
	// Dispatch is called inside the engine transaction. Once it returns nil the
	// bus owns the events and delivers each of them at least once.
	Dispatch(ctx context.Context, evt ...*DomainEvent) error

	// RegisterEventHandler sets the callback receiving every delivered event.
	RegisterEventHandler(cb DomainEventHandler)
}

// ITransactionEventBus holds SendTypeTransaction events until the engine
// reports the outcome of its transaction.
type ITransactionEventBus interface {
	IEventBus

	RegisterEventTXChecker(cb DomainEventTXChecker)

	// DispatchBegin keeps the events aside. The returned context goes to
	// Commit or Rollback.
	DispatchBegin(ctx context.Context, evt ...*DomainEvent) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type noEventBus struct{}

func (noEventBus) Dispatch(ctx context.Context, evt ...*DomainEvent) error {
	return ErrNoEventBusFound
}

func (noEventBus) RegisterEventHandler(cb DomainEventHandler) {}
