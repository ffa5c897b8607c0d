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

package stdr

import (
	stdlog "log"
	"os"

	"github.com/go-logr/logr"
	gostdr "github.com/go-logr/stdr"
)

var std = stdlog.New(os.Stderr, "", stdlog.LstdFlags|stdlog.Lshortfile)

// NewStdr returns a logr.Logger writing to stderr, named after the component.
func NewStdr(name string) logr.Logger {
	return gostdr.New(std).WithName(name)
}

// SetVerbosity sets the global V level for every logger created by NewStdr,
// returning the previous level.
func SetVerbosity(v int) int {
	return gostdr.SetVerbosity(v)
}
