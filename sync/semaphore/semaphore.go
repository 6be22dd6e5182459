// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package semaphore provides counting semaphores that assign a slot id
// to each holder.
package semaphore

import (
	"context"
	"sync/atomic"
)

// Semaphore is a semaphore.
// Each acquired slot has a tid in [1, capacity], which is unique
// among concurrent holders.
type Semaphore struct {
	name string
	ch   chan int

	waits atomic.Int64
	reqs  atomic.Int64
}

// New creates a new semaphore with name and capacity.
func New(name string, n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	ch := make(chan int, n)
	for i := 0; i < n; i++ {
		ch <- i + 1 // tid
	}
	return &Semaphore{
		name: name,
		ch:   ch,
	}
}

type tidKeyType struct{}

var tidKey tidKeyType

// TID returns tid of the semaphore slot acquired for ctx,
// or 0 if ctx was not returned by WaitAcquire.
func TID(ctx context.Context) int {
	tid, _ := ctx.Value(tidKey).(int)
	return tid
}

// WaitAcquire acquires a semaphore.
// It returns a context for acquired semaphore and func to release it.
// The context holds tid of the acquired slot. See TID.
func (s *Semaphore) WaitAcquire(ctx context.Context) (context.Context, func(), error) {
	s.waits.Add(1)
	defer s.waits.Add(-1)
	select {
	case tid := <-s.ch:
		s.reqs.Add(1)
		return context.WithValue(ctx, tidKey, tid), func() {
			s.ch <- tid
		}, nil
	case <-ctx.Done():
		return ctx, func() {}, context.Cause(ctx)
	}
}

// Name returns name of the semaphore.
func (s *Semaphore) Name() string {
	return s.name
}

// Capacity returns capacity of the semaphore.
func (s *Semaphore) Capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.ch)
}

// NumServs returns number of currently served.
func (s *Semaphore) NumServs() int {
	return cap(s.ch) - len(s.ch)
}

// NumWaits returns number of waiters.
func (s *Semaphore) NumWaits() int {
	return int(s.waits.Load())
}

// NumRequests returns total number of requests.
func (s *Semaphore) NumRequests() int {
	return int(s.reqs.Load())
}
