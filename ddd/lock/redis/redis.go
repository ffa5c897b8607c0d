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

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/salesrecord/salesapi/ddd"
)

type Options struct {
	RetryBackoff time.Duration
	RetryLimit   int
}

type Option func(opt *Options)

// RedisLock implements ddd.ILock with redislock. Locks expire after ttl.
type RedisLock struct {
	ttl time.Duration
	cli *redislock.Client
	opt Options
}

func NewRedisLock(cli redis.UniversalClient, ttl time.Duration, options ...Option) *RedisLock {
	opt := Options{
		RetryBackoff: 100 * time.Millisecond,
		RetryLimit:   30,
	}
	for _, o := range options {
		o(&opt)
	}
	return &RedisLock{cli: redislock.New(cli), ttl: ttl, opt: opt}
}

func (r *RedisLock) Lock(ctx context.Context, key string) (keyLock interface{}, err error) {
	l, err := r.cli.Obtain(ctx, key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(r.opt.RetryBackoff), r.opt.RetryLimit),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ddd.ErrEntityLocked
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *RedisLock) UnLock(ctx context.Context, keyLock interface{}) error {
	l, ok := keyLock.(*redislock.Lock)
	if !ok {
		return fmt.Errorf("invalid lock type %T", keyLock)
	}
	return l.Release(ctx)
}
