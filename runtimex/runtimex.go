// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package runtimex provides processor count used as default parallelism.
package runtimex

import (
	"runtime"
	"sync"
)

var ncpu = sync.OnceValue(func() int {
	n := activeProcessors()
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return n
})

// NumCPU returns number of processors available to the process.
// On windows, it counts processors in all processor groups,
// while runtime.NumCPU is limited to the current group.
func NumCPU() int {
	return ncpu()
}
