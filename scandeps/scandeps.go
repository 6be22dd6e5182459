// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"go.chromium.org/infra/build/cdeps/o11y/clog"
	"go.chromium.org/infra/build/cdeps/o11y/trace"
	"go.chromium.org/infra/build/cdeps/osfs"
	"go.chromium.org/infra/build/cdeps/runtimex"
	"go.chromium.org/infra/build/cdeps/sync/semaphore"
)

// Scanner scans source files for #include directives.
type Scanner struct {
	fs   *osfs.OSFS
	opts Options
	enc  encoding.Encoding
	sema *semaphore.Semaphore
}

// Result is a result of scanning a source file.
type Result struct {
	Path     string
	Includes []Include
	// Err is set only in keep-going mode.
	Err error
}

// UserHeaders returns names of user headers in the file, in order.
func (r Result) UserHeaders() []string {
	return UserHeaders(r.Includes)
}

// New creates new Scanner.
func New(fsys *osfs.OSFS, opts Options) (*Scanner, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultOptions().Extensions
	}
	if opts.Jobs == 0 {
		opts.Jobs = runtimex.NumCPU()
	}
	return &Scanner{
		fs:   fsys,
		opts: opts,
		enc:  enc,
		sema: semaphore.New("scandeps", opts.Jobs),
	}, nil
}

// Semaphore returns semaphore that limits concurrent file scans.
func (s *Scanner) Semaphore() *semaphore.Semaphore {
	return s.sema
}

// Scan scans target, which is a source file or a directory.
// A file is scanned regardless of its extension. For a directory,
// files returned by Enumerate are scanned.
//
// report is called for each scanned file in order.
// By default, Scan stops at the first file that fails and returns
// its error; report is not called for the file and files after it.
// In keep-going mode, report is called with Result.Err for a failed
// file, and Scan returns ErrFilesFailed after all files are scanned.
func (s *Scanner) Scan(ctx context.Context, target string, report func(Result) error) error {
	ctx, span := trace.NewSpan(ctx, "scan")
	defer span.Close(nil)

	fi, err := s.fs.Stat(ctx, target)
	if errors.Is(err, fs.ErrNotExist) {
		return &TargetError{Path: target, Msg: "the target does not exist"}
	}
	if err != nil {
		return &TargetError{Path: target, Msg: "could not stat the target", Err: err}
	}
	var files []string
	switch {
	case fi.Mode().IsRegular():
		files = []string{target}
	case fi.IsDir():
		files, err = Enumerate(ctx, s.fs, target, s.opts)
		if err != nil {
			return err
		}
	default:
		return &TargetError{Path: target, Msg: "the target needs to be a file or a folder"}
	}
	span.SetAttr("files", len(files))
	if log.V(1) {
		clog.Infof(ctx, "scan %d files in %s", len(files), target)
	}
	return s.scanFiles(ctx, files, report)
}

func (s *Scanner) scanFiles(ctx context.Context, files []string, report func(Result) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(files))
	ready := make([]chan struct{}, len(files))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	// start scans in file order, so earlier files finish first
	// with limited jobs.
	var eg errgroup.Group
	eg.Go(func() error {
		for i, fname := range files {
			sctx, done, err := s.sema.WaitAcquire(ctx)
			if err != nil {
				return err
			}
			eg.Go(func() error {
				defer done()
				defer close(ready[i])
				results[i] = s.scanFile(sctx, fname)
				return nil
			})
		}
		return nil
	})

	failed := 0
	err := func() error {
		for i := range files {
			select {
			case <-ready[i]:
			case <-ctx.Done():
				return context.Cause(ctx)
			}
			r := results[i]
			if r.Err != nil {
				if !s.opts.KeepGoing {
					return r.Err
				}
				failed++
			}
			err := report(r)
			if err != nil {
				return err
			}
		}
		return nil
	}()
	cancel()
	// scan errors are already in results.
	_ = eg.Wait()
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrFilesFailed, failed, len(files))
	}
	return nil
}

func (s *Scanner) scanFile(ctx context.Context, fname string) Result {
	ctx = clog.WithFile(ctx, fname)
	ctx, span := trace.NewSpan(ctx, "scan-file")
	span.SetAttr("file", fname)
	span.SetAttr("tid", semaphore.TID(ctx))

	logger := clog.FromContext(ctx)

	includes, err := s.scanIncludes(ctx, fname)
	span.Close(trace.Status(err))
	if err != nil {
		if logger.V(1) {
			logger.Warningf("scan failed: %v", err)
		}
		return Result{Path: fname, Err: err}
	}
	if logger.V(1) {
		logger.Infof("%d includes", len(includes))
	}
	return Result{Path: fname, Includes: includes}
}

func (s *Scanner) scanIncludes(ctx context.Context, fname string) ([]Include, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(ctx, fname)
	if err != nil {
		return nil, &TargetError{Path: fname, Msg: "could not open file", Err: err}
	}
	defer f.Close()
	var r io.Reader = f
	if s.enc != nil {
		r = transform.NewReader(f, s.enc.NewDecoder())
	}
	opts := ScanOptions{
		MaxLineLength:     s.opts.MaxLineLength,
		MaxFilenameLength: s.opts.MaxFilenameLength,
	}
	var includes []Include
	switch s.opts.Mode {
	case ModeStream:
		includes, err = ScanIncludesStream(ctx, fname, r, opts)
	default:
		includes, err = ScanIncludes(ctx, fname, r, opts)
	}
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", fname, err)
	}
	return includes, nil
}
