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
	"testing"

	"github.com/stretchr/testify/assert"
)

type testEvent struct {
	Type EventType
	Data string
}

func (t *testEvent) GetType() EventType {
	if t.Type == "" {
		return "test"
	}
	return t.Type
}

func (t *testEvent) GetSender() string {
	return "test"
}

func TestEventRouter(t *testing.T) {
	var getData string
	RegisterEventHandler("test_router", func(ctx context.Context, evt *testEvent) error {
		getData = evt.Data
		return nil
	})

	ctx := context.Background()
	assert.NoError(t, onEvent(ctx, NewDomainEvent(&testEvent{Type: "test_router", Data: "helloworld"})))

	assert.Equal(t, "helloworld", getData)
}

func TestDomainEventRouter(t *testing.T) {
	var getData string
	RegisterEventHandler("test_domain_router", func(ctx context.Context, evt *DomainEvent) error {
		getData = string(evt.Payload)
		return nil
	})

	ctx := context.Background()
	assert.NoError(t, onEvent(ctx, NewDomainEvent(&testEvent{Type: "test_domain_router", Data: "helloworld"})))

	assert.Contains(t, getData, "helloworld")
	assert.True(t, hasEventHandler("test_domain_router"))
	assert.False(t, hasEventHandler("test_nobody"))
}

func TestEventRegisterInvalidHandler(t *testing.T) {
	assert.Panics(t, func() {
		RegisterEventHandler("test_invalid", func(evt *testEvent) error { return nil })
	})
	assert.Panics(t, func() {
		RegisterEventHandler("test_invalid", func(ctx context.Context, evt testEvent) error { return nil })
	})
	assert.Panics(t, func() {
		RegisterEventHandler("test_invalid", func(ctx context.Context, evt *testEvent) {})
	})
}

func TestEventTXChecker(t *testing.T) {
	getData := ""
	RegisterEventTXChecker("test_checker", func(evt *DomainEvent) TXStatus {
		getData = string(evt.Payload)
		return TXCommit
	})
	RegisterEventTXChecker("test_checker_2", func(evt *testEvent) TXStatus {
		return TXCommit
	})

	status := onTXChecker(NewDomainEvent(&testEvent{Type: "test_checker", Data: "helloworld"}))
	assert.Equal(t, TXCommit, status)
	assert.Contains(t, getData, "helloworld")

	// unknown outcome without checker is rolled back
	assert.Equal(t, TXRollBack, onTXChecker(NewDomainEvent(&testEvent{Type: "test_no_checker"})))

	assert.Panics(t, func() {
		RegisterEventTXChecker("test_checker", func(evt *DomainEvent) TXStatus { return TXCommit })
	})
}

func TestNewDomainEvent(t *testing.T) {
	evt := &testEvent{Data: "before"}
	first := NewDomainEvent(evt)
	evt.Data = "after"
	second := NewDomainEvent(evt, WithSendType(SendTypeFIFO))

	assert.NotEqual(t, first.ID, second.ID)
	assert.Less(t, first.Seq, second.Seq)
	assert.Equal(t, SendTypeNormal, first.SendType)
	assert.Equal(t, SendTypeFIFO, second.SendType)
	assert.Equal(t, EventType("test"), first.Type)
	assert.Equal(t, "test", first.Sender)
	// the payload is fixed when the event is built
	assert.Contains(t, string(first.Payload), "before")
	assert.Contains(t, string(second.Payload), "after")
}
