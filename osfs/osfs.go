// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package osfs provides OS Filesystem access.
package osfs

import (
	"context"
	"io"
	"io/fs"
	"os"
	"runtime"
	"time"

	"go.chromium.org/infra/build/cdeps/o11y/clog"
	"go.chromium.org/infra/build/cdeps/o11y/iometrics"
)

// slowThreshold is a duration to log an operation as slow.
const slowThreshold = 1 * time.Minute

// OSFS provides OS Filesystem access.
// It counts metrics by iometrics.
type OSFS struct {
	*iometrics.IOMetrics
}

// New creates new OSFS.
func New(name string) *OSFS {
	return &OSFS{IOMetrics: iometrics.New(name)}
}

func logSlow(ctx context.Context, name string, dur time.Duration, err error) {
	buf := make([]byte, 4*1024)
	n := runtime.Stack(buf, false)
	clog.Warningf(ctx, "slow op %s: %s %v\n%s", name, dur, err, buf[:n])
}

// Stat returns a FileInfo describing the named file.
// It follows symlinks.
func (fs *OSFS) Stat(ctx context.Context, fname string) (fs.FileInfo, error) {
	started := time.Now()
	fi, err := os.Stat(fname)
	fs.OpsDone(err)
	if dur := time.Since(started); dur > slowThreshold {
		logSlow(ctx, fname, dur, err)
	}
	return fi, err
}

// ReadDir reads the named directory, and returns its entries
// sorted by filename.
func (fs *OSFS) ReadDir(ctx context.Context, dirname string) ([]fs.DirEntry, error) {
	started := time.Now()
	ents, err := os.ReadDir(dirname)
	fs.DirDone(err)
	if dur := time.Since(started); dur > slowThreshold {
		logSlow(ctx, dirname, dur, err)
	}
	return ents, err
}

// Open opens the named file for reading.
// Bytes read until Close are counted as one read.
func (fs *OSFS) Open(ctx context.Context, fname string) (io.ReadCloser, error) {
	started := time.Now()
	f, err := os.Open(fname)
	if err != nil {
		fs.ReadDone(0, err)
		return nil, err
	}
	return &file{ctx: ctx, file: f, started: started, fs: fs}, nil
}

// Create creates the named file for writing.
// Bytes written until Close are counted as one write.
func (fs *OSFS) Create(ctx context.Context, fname string) (io.WriteCloser, error) {
	started := time.Now()
	f, err := os.Create(fname)
	if err != nil {
		fs.WriteDone(0, err)
		return nil, err
	}
	return &file{ctx: ctx, file: f, started: started, fs: fs, write: true}, nil
}

type file struct {
	ctx     context.Context
	file    *os.File
	started time.Time
	fs      *OSFS
	write   bool
	n       int
}

func (f *file) Read(buf []byte) (int, error) {
	n, err := f.file.Read(buf)
	f.n += n
	return n, err
}

func (f *file) Write(buf []byte) (int, error) {
	n, err := f.file.Write(buf)
	f.n += n
	return n, err
}

func (f *file) Close() error {
	name := f.file.Name()
	err := f.file.Close()
	if f.write {
		f.fs.WriteDone(f.n, err)
	} else {
		f.fs.ReadDone(f.n, err)
	}
	if dur := time.Since(f.started); dur > slowThreshold {
		logSlow(f.ctx, name, dur, err)
	}
	return err
}
