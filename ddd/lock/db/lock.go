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
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-logr/logr"
	"github.com/rs/xid"
	"gorm.io/gorm"

	"github.com/salesrecord/salesapi/ddd"
	"github.com/salesrecord/salesapi/logger/stdr"
)

type Options struct {
	RenewInterval time.Duration // used by Run, must stay below the ttl
	Attempts      uint          // 1 disables retrying
	RetryDelay    time.Duration
	Logger        logr.Logger
}

type Option func(opt *Options)

func WithoutRetry() Option {
	return func(opt *Options) {
		opt.Attempts = 1
	}
}

func WithRetry(attempts uint, delay time.Duration) Option {
	return func(opt *Options) {
		opt.Attempts = attempts
		opt.RetryDelay = delay
	}
}

func WithRenewInterval(d time.Duration) Option {
	return func(opt *Options) {
		opt.RenewInterval = d
	}
}

// DBLock implements ddd.ILock with leases stored in a table. A lease not
// renewed within ttl is abandoned and the next Lock takes it over.
type DBLock struct {
	db  *gorm.DB
	ttl time.Duration
	opt Options
}

func NewDBLock(db *gorm.DB, ttl time.Duration, options ...Option) *DBLock {
	opt := Options{
		RenewInterval: time.Second,
		Attempts:      5,
		RetryDelay:    100 * time.Millisecond,
		Logger:        stdr.NewStdr("db_lock"),
	}
	for _, o := range options {
		o(&opt)
	}
	if ttl <= opt.RenewInterval {
		panic(fmt.Sprintf("lock ttl %v must exceed the renew interval %v", ttl, opt.RenewInterval))
	}
	return &DBLock{db: db, ttl: ttl, opt: opt}
}

// Lock returns a *Lease, or ddd.ErrEntityLocked once the retries are spent.
func (l *DBLock) Lock(ctx context.Context, key string) (interface{}, error) {
	var lease *Lease
	err := retry.Do(
		func() error {
			var err error
			lease, err = l.acquire(ctx, key)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(l.opt.Attempts),
		retry.Delay(l.opt.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, ddd.ErrEntityLocked) }),
	)
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// acquire inserts the lease, or steals it when its holder stopped renewing.
func (l *DBLock) acquire(ctx context.Context, key string) (*Lease, error) {
	db := l.db.WithContext(ctx)
	now := time.Now()
	lease := &Lease{Resource: key, Holder: xid.New().String(), RenewedAt: now}

	err := db.Create(lease).Error
	if err == nil {
		return lease, nil
	}
	if !l.duplicate(err) {
		return nil, fmt.Errorf("create lease %s: %w", key, err)
	}

	res := db.Model(&Lease{}).
		Where("resource = ? AND renewed_at < ?", key, now.Add(-l.ttl)).
		Updates(map[string]interface{}{"holder": lease.Holder, "renewed_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("take over lease %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ddd.ErrEntityLocked
	}
	return lease, nil
}

func (l *DBLock) duplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if t, ok := l.db.Dialector.(gorm.ErrorTranslator); ok && errors.Is(t.Translate(err), gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite, mysql and postgres wording when TranslateError is off
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

func (l *DBLock) UnLock(ctx context.Context, keyLock interface{}) error {
	lease, ok := keyLock.(*Lease)
	if !ok {
		return fmt.Errorf("not a db lease: %T", keyLock)
	}
	res := l.db.WithContext(ctx).
		Where("resource = ? AND holder = ?", lease.Resource, lease.Holder).
		Delete(&Lease{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("lease %s is no longer held by %s", lease.Resource, lease.Holder)
	}
	return nil
}

func (l *DBLock) renew(ctx context.Context, lease *Lease) error {
	res := l.db.WithContext(ctx).Model(&Lease{}).
		Where("resource = ? AND holder = ?", lease.Resource, lease.Holder).
		Update("renewed_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("lease %s was taken over", lease.Resource)
	}
	return nil
}

// Run holds key while fn runs and renews the lease every RenewInterval. The
// context given to fn is cancelled as soon as a renewal fails.
func (l *DBLock) Run(ctx context.Context, key string, fn func(ctx context.Context)) error {
	keyLock, err := l.Lock(ctx, key)
	if err != nil {
		return err
	}
	lease := keyLock.(*Lease)
	defer func() {
		if err := l.UnLock(ctx, lease); err != nil {
			l.opt.Logger.Error(err, "release lease failed", "key", key)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(l.opt.RenewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}
			if err := l.renew(ctx, lease); err != nil {
				l.opt.Logger.Info("lease lost", "key", key, "error", err.Error())
				cancel()
				return
			}
		}
	}()

	fn(runCtx)
	return nil
}
