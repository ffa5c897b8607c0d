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

import "sort"

// EventLog is an ordered buffer of domain events owned by one entity.
// It is not safe for concurrent use.
type EventLog struct {
	events []*DomainEvent
}

// Emit builds a DomainEvent from evt, appends it and returns it.
func (l *EventLog) Emit(evt IEvent, opts ...EventOpt) *DomainEvent {
	de := NewDomainEvent(evt, opts...)
	l.events = append(l.events, de)
	return de
}

// Append adds already built events to the log.
func (l *EventLog) Append(evts ...*DomainEvent) {
	l.events = append(l.events, evts...)
}

// Events returns a copy of the held events.
func (l *EventLog) Events() []*DomainEvent {
	if len(l.events) == 0 {
		return nil
	}
	res := make([]*DomainEvent, len(l.events))
	copy(res, l.events)
	return res
}

// Drain returns the held events in emission order and empties the log.
func (l *EventLog) Drain() []*DomainEvent {
	res := l.events
	l.events = nil
	if res == nil {
		return []*DomainEvent{}
	}
	return res
}

func (l *EventLog) Len() int {
	return len(l.events)
}

// MergeEvents merges several drained sequences back into emission order.
func MergeEvents(groups ...[]*DomainEvent) []*DomainEvent {
	res := make([]*DomainEvent, 0)
	for _, g := range groups {
		res = append(res, g...)
	}
	sortEvents(res)
	return res
}

func sortEvents(events []*DomainEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Seq < events[j].Seq
	})
}
