// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package formatutil styles strings for terminal output.
package formatutil

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

// colors is 0 when not decided yet, 1 when enabled and 2 when disabled
var colors atomic.Int32

// SetColors forces styling on or off, regardless of whether the standard output is a terminal
func SetColors(on bool) {
	if on {
		colors.Store(1)
	} else {
		colors.Store(2)
	}
}

func enabled() bool {
	if colors.Load() == 0 {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			colors.CompareAndSwap(0, 1)
		} else {
			colors.CompareAndSwap(0, 2)
		}
	}
	return colors.Load() == 1
}

// Style returns a function formatting its arguments like fmt.Sprint, wrapped in the escape sequence format when
// styling is enabled
func Style(format string) func(...any) string {
	return func(args ...any) string {
		s := fmt.Sprint(args...)
		if !enabled() {
			return s
		}
		return fmt.Sprintf(format, s)
	}
}

var (
	Bold   = Style("\033[1m%s\033[0m")
	Faint  = Style("\033[2m%s\033[0m")
	Red    = Style("\033[1;31m%s\033[0m")
	Green  = Style("\033[1;32m%s\033[0m")
	Yellow = Style("\033[1;33m%s\033[0m")
	Cyan   = Style("\033[1;36m%s\033[0m")
)

// Sanitize escapes non-printable characters of s
func Sanitize(s string) string {
	r := fmt.Sprintf("%q", s)
	return r[1 : len(r)-1]
}
