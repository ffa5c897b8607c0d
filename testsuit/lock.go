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

package testsuit

import (
	"context"
	"fmt"
	"sync"
)

var ErrLocked = fmt.Errorf("key already locked")

// MemLock is a process local, non blocking lock for tests.
type MemLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemLock() *MemLock {
	return &MemLock{held: map[string]bool{}}
}

func (l *MemLock) Lock(ctx context.Context, key string) (keyLock interface{}, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, ErrLocked
	}
	l.held[key] = true
	return key, nil
}

func (l *MemLock) UnLock(ctx context.Context, keyLock interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key, ok := keyLock.(string)
	if !ok || !l.held[key] {
		return fmt.Errorf("key %v not locked", keyLock)
	}
	delete(l.held, key)
	return nil
}

// Held reports whether key is currently locked.
func (l *MemLock) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.held[key]
}
