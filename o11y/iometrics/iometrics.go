// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package iometrics manages I/O metrics.
package iometrics

import (
	"fmt"
	"sync/atomic"
)

// IOMetrics holds I/O metrics.
// A nil *IOMetrics is valid and counts nothing.
type IOMetrics struct {
	name string

	ops     atomic.Int64
	opsErrs atomic.Int64
	dirs    atomic.Int64
	rOps    atomic.Int64
	rBytes  atomic.Int64
	rErrs   atomic.Int64
	wOps    atomic.Int64
	wBytes  atomic.Int64
	wErrs   atomic.Int64
}

// New returns new iometrics for name.
func New(name string) *IOMetrics {
	return &IOMetrics{name: name}
}

// OpsDone counts when a metadata operation is done, e.g. stat.
// err is an I/O operation error.
func (m *IOMetrics) OpsDone(err error) {
	if m == nil {
		return
	}
	m.ops.Add(1)
	if err != nil {
		m.opsErrs.Add(1)
	}
}

// DirDone counts when a directory is read.
func (m *IOMetrics) DirDone(err error) {
	if m == nil {
		return
	}
	m.dirs.Add(1)
	m.OpsDone(err)
}

// ReadDone counts when a file is read.
// n is the number of bytes, and err is a read error.
func (m *IOMetrics) ReadDone(n int, err error) {
	if m == nil {
		return
	}
	m.rOps.Add(1)
	m.rBytes.Add(int64(n))
	if err != nil {
		m.rErrs.Add(1)
	}
}

// WriteDone counts when a file is written.
// n is the number of bytes, and err is a write error.
func (m *IOMetrics) WriteDone(n int, err error) {
	if m == nil {
		return
	}
	m.wOps.Add(1)
	m.wBytes.Add(int64(n))
	if err != nil {
		m.wErrs.Add(1)
	}
}

// Name returns the name of the iometrics.
func (m *IOMetrics) Name() string {
	if m == nil {
		return "<nil>"
	}
	return m.name
}

// Stats holds iometrics.
type Stats struct {
	// Number of metadata operations, including directory reads.
	Ops int64
	// Number of metadata operation errors.
	OpsErrs int64
	// Number of directory reads.
	Dirs int64

	// Number of files read.
	ROps int64
	// Number of bytes read.
	RBytes int64
	// Number of read errors.
	RErrs int64

	// Number of files written.
	WOps int64
	// Number of bytes written.
	WBytes int64
	// Number of write errors.
	WErrs int64
}

// Stats returns the snapshot of the iometrics.
func (m *IOMetrics) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		Ops:     m.ops.Load(),
		OpsErrs: m.opsErrs.Load(),
		Dirs:    m.dirs.Load(),
		ROps:    m.rOps.Load(),
		RBytes:  m.rBytes.Load(),
		RErrs:   m.rErrs.Load(),
		WOps:    m.wOps.Load(),
		WBytes:  m.wBytes.Load(),
		WErrs:   m.wErrs.Load(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("ops=%d(err=%d) dirs=%d read=%d/%dB(err=%d) write=%d/%dB(err=%d)",
		s.Ops, s.OpsErrs, s.Dirs, s.ROps, s.RBytes, s.RErrs, s.WOps, s.WBytes, s.WErrs)
}
