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
	"reflect"
	"sync"
)

// EventHandler is a func(ctx context.Context, evt *T) error where T is
// DomainEvent or the payload type the event was built from.
type EventHandler interface{}

// EventTXChecker is a func(evt *T) TXStatus, T as for EventHandler.
type EventTXChecker interface{}

var (
	ctxType         = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType         = reflect.TypeOf((*error)(nil)).Elem()
	domainEventType = reflect.TypeOf(DomainEvent{})
	txStatusType    = reflect.TypeOf(TXUnknown)
)

// eventHandler is a registered func plus the type its event argument points to.
type eventHandler struct {
	f         reflect.Value
	eventType reflect.Type
}

// decodeEvent builds the argument h expects from evt.
func decodeEvent(h *eventHandler, evt *DomainEvent) (reflect.Value, error) {
	if h.eventType == domainEventType {
		return reflect.ValueOf(evt), nil
	}
	arg := reflect.New(h.eventType)
	if err := json.Unmarshal(evt.Payload, arg.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("decode %s event into %v: %w", evt.Type, h.eventType, err)
	}
	return arg, nil
}

// eventArg returns the pointed type of the argument at i, panicking when f
// does not take a pointer there.
func eventArg(f reflect.Type, i int) reflect.Type {
	arg := f.In(i)
	if arg.Kind() != reflect.Ptr {
		panic(fmt.Sprintf("event argument of %v must be a pointer", f))
	}
	return arg.Elem()
}

type router struct {
	mu       sync.Mutex
	handlers map[EventType][]*eventHandler
	checkers map[EventType]*eventHandler
}

var eventRoutes = &router{
	handlers: map[EventType][]*eventHandler{},
	checkers: map[EventType]*eventHandler{},
}

func (r *router) addHandler(t EventType, handler EventHandler) {
	f := reflect.TypeOf(handler)
	switch {
	case f == nil || f.Kind() != reflect.Func:
		panic(fmt.Sprintf("handler of %s must be a func, got %T", t, handler))
	case f.NumIn() != 2 || !f.In(0).Implements(ctxType):
		panic(fmt.Sprintf("handler of %s must take (context.Context, *Event)", t))
	case f.NumOut() != 1 || !f.Out(0).Implements(errType):
		panic(fmt.Sprintf("handler of %s must return a single error", t))
	}
	h := &eventHandler{f: reflect.ValueOf(handler), eventType: eventArg(f, 1)}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = append(r.handlers[t], h)
}

func (r *router) setChecker(t EventType, checker EventTXChecker) {
	f := reflect.TypeOf(checker)
	switch {
	case f == nil || f.Kind() != reflect.Func:
		panic(fmt.Sprintf("tx checker of %s must be a func, got %T", t, checker))
	case f.NumIn() != 1:
		panic(fmt.Sprintf("tx checker of %s must take a single *Event", t))
	case f.NumOut() != 1 || !f.Out(0).ConvertibleTo(txStatusType):
		panic(fmt.Sprintf("tx checker of %s must return a TXStatus", t))
	}
	h := &eventHandler{f: reflect.ValueOf(checker), eventType: eventArg(f, 0)}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.checkers[t] != nil {
		panic(fmt.Sprintf("tx checker of %s registered twice", t))
	}
	r.checkers[t] = h
}

func (r *router) handlersOf(t EventType) []*eventHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[t]
}

func (r *router) checkerOf(t EventType) *eventHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkers[t]
}

// RegisterEventHandler adds handler to the handlers of events of type t.
// Handlers of one type run in registration order and the first error stops
// the delivery.
func RegisterEventHandler(t EventType, handler EventHandler) {
	eventRoutes.addHandler(t, handler)
}

// RegisterEventTXChecker sets the checker transactional buses ask when the
// outcome of a transaction was never reported. One checker per type.
func RegisterEventTXChecker(t EventType, checker EventTXChecker) {
	eventRoutes.setChecker(t, checker)
}

// RegisterEventBus makes bus deliver into the handlers registered here. A nil
// bus is ignored.
func RegisterEventBus(bus IEventBus) {
	if bus == nil {
		return
	}
	bus.RegisterEventHandler(onEvent)
	if txBus, ok := bus.(ITransactionEventBus); ok {
		txBus.RegisterEventTXChecker(onTXChecker)
	}
}

func hasEventHandler(t EventType) bool {
	return len(eventRoutes.handlersOf(t)) > 0
}

func onEvent(ctx context.Context, evt *DomainEvent) error {
	defaultLogger.V(1).Info("deliver event", "type", evt.Type, "id", evt.ID, "sender", evt.Sender)
	for _, h := range eventRoutes.handlersOf(evt.Type) {
		arg, err := decodeEvent(h, evt)
		if err != nil {
			return err
		}
		out := h.f.Call([]reflect.Value{reflect.ValueOf(ctx), arg})[0]
		if !out.IsNil() {
			return out.Interface().(error)
		}
	}
	return nil
}

// onTXChecker rolls back events nobody can vouch for.
func onTXChecker(evt *DomainEvent) TXStatus {
	h := eventRoutes.checkerOf(evt.Type)
	if h == nil {
		return TXRollBack
	}
	arg, err := decodeEvent(h, evt)
	if err != nil {
		defaultLogger.Error(err, "tx check skipped", "type", evt.Type, "id", evt.ID)
		return TXRollBack
	}
	out := h.f.Call([]reflect.Value{arg})[0]
	return TXStatus(out.Convert(txStatusType).Int())
}
