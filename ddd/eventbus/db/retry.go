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

import "time"

// RetryPolicy schedules the retry that follows prev. ok is false once the
// event should be given up and moved to the dead list.
type RetryPolicy interface {
	Next(prev Attempt) (next Attempt, ok bool)
}

// Backoff retries once per listed delay. The first delay counts from the
// failed delivery, the others from the previous retry.
type Backoff []time.Duration

func (b Backoff) Next(prev Attempt) (Attempt, bool) {
	if prev.Count >= len(b) {
		return Attempt{}, false
	}
	from := prev.At
	if prev.Count == 0 || from.IsZero() {
		from = time.Now()
	}
	return Attempt{
		EventID: prev.EventID,
		Count:   prev.Count + 1,
		At:      from.Add(b[prev.Count]),
	}, true
}

// FixedBackoff retries limit times, interval apart. A zero interval retries
// on the next poll.
func FixedBackoff(interval time.Duration, limit int) Backoff {
	b := make(Backoff, limit)
	for i := range b {
		b[i] = interval
	}
	return b
}
