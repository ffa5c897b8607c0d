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
	"errors"
	"strings"
)

var (
	// ErrBreak ends a stage early. The result has Break set and no error.
	ErrBreak = errors.New("break process")

	ErrEntityNotFound = errors.New("entity not found")
	ErrEntityRepeated = errors.New("entity already added")
	ErrEntityLocked   = errors.New("entity locked")
	ErrAlreadyTracked = errors.New("entity already tracked by the stage")
)

// ErrList carries the errors of the steps that failed after the command body.
type ErrList []error

func (e ErrList) Error() string {
	var b strings.Builder
	for i, err := range e {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ErrList) Unwrap() []error {
	return e
}

// Result is what a stage reports. Output is whatever Main passed to
// Repository.Output.
type Result struct {
	Error   error
	Break   bool
	Actions []*Action
	Events  []*DomainEvent // dispatched, in emission order
	Output  interface{}
}

func ResultErrors(errs ...error) *Result {
	return &Result{Error: ErrList(errs)}
}

func ResultError(err error) *Result {
	return &Result{Error: err}
}

func ResultErrOrBreak(err error) *Result {
	if errors.Is(err, ErrBreak) {
		return &Result{Break: true}
	}
	return &Result{Error: err}
}
