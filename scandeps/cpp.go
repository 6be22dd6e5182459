// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/cdeps/o11y/clog"
	"go.chromium.org/infra/build/cdeps/o11y/trace"
)

// Include is an #include directive found in a source file.
type Include struct {
	// Name is the filename between the delimiters.
	// Empty for SystemHeader found by ScanIncludesStream.
	Name string
	Kind HeaderKind
	// Line is 1-based line where the directive starts.
	Line int
}

// ScanOptions are limits for scanning a file.
// Zero means no limit.
type ScanOptions struct {
	MaxLineLength int
	// MaxFilenameLength limits user header names only.
	MaxFilenameLength int
}

// UserHeaders returns names of user headers in includes, in order.
func UserHeaders(includes []Include) []string {
	var names []string
	for _, inc := range includes {
		if inc.Kind == UserHeader {
			names = append(names, inc.Name)
		}
	}
	return names
}

var includeDirective = []byte("#include")

// ScanIncludes scans #include directives in source read from r.
//
// It reads comment-free lines, and checks the line starts with
// "#include" after leading spaces and tabs. "#include" must be
// followed by "path" or <path>. Other forms, e.g. `#include FOO_H`,
// are error.
func ScanIncludes(ctx context.Context, fname string, r io.Reader, opts ScanOptions) ([]Include, error) {
	ctx, span := trace.NewSpan(ctx, "scan-includes")
	defer span.Close(nil)

	started := time.Now()
	s := NewSession(fname, r)
	var includes []Include
	for {
		lineno := s.Line()
		line, err := s.ReadLogicalLine(opts.MaxLineLength)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		inc, ok, err := parseIncludeLine(ctx, line, opts)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Path = fname
				perr.Line = lineno
			}
			return nil, err
		}
		if !ok {
			continue
		}
		inc.Line = lineno
		includes = append(includes, inc)
	}
	span.SetAttr("includes", len(includes))
	if dur := time.Since(started); dur > time.Second {
		clog.Infof(ctx, "slow scan %s %s", fname, dur)
	}
	return includes, nil
}

func parseIncludeLine(ctx context.Context, line []byte, opts ScanOptions) (Include, bool, error) {
	lineStart := line
	line = bytes.TrimLeft(line, " \t")
	if !bytes.HasPrefix(line, includeDirective) {
		if log.V(3) {
			clog.Infof(ctx, "skip %q", lineStart)
		}
		return Include{}, false, nil
	}
	line = bytes.TrimLeft(line[len(includeDirective):], " \t")
	var kind HeaderKind
	var delim byte
	switch {
	case len(line) > 0 && line[0] == '"':
		kind, delim = UserHeader, '"'
	case len(line) > 0 && line[0] == '<':
		kind, delim = SystemHeader, '>'
	default:
		return Include{}, false, &ParseError{
			Kind: MalformedInclude,
			Msg:  fmt.Sprintf("unexpected header quote character in %q", lineStart),
		}
	}
	line = line[1:]
	i := bytes.IndexByte(line, delim)
	if i < 0 {
		return Include{}, false, &ParseError{
			Kind: UnterminatedName,
			Msg:  fmt.Sprintf("unexpected end of include filename in %q", lineStart),
		}
	}
	// system header names are skipped without limit.
	if kind == UserHeader && opts.MaxFilenameLength > 0 && i > opts.MaxFilenameLength {
		return Include{}, false, &ParseError{
			Kind: TooLong,
			Msg:  fmt.Sprintf("include filename is too long (> %d)", opts.MaxFilenameLength),
		}
	}
	inc := Include{
		Name: string(line[:i]),
		Kind: kind,
	}
	if log.V(1) {
		clog.Infof(ctx, "include %s %q", kind, inc.Name)
	}
	return inc, true, nil
}

// ScanIncludesStream scans #include directives in source read from r,
// by parsing the directive from the comment-free character stream
// instead of from a line.
// It finds the same user headers as ScanIncludes does for well-formed
// source. Names of system headers are not captured.
func ScanIncludesStream(ctx context.Context, fname string, r io.Reader, opts ScanOptions) ([]Include, error) {
	ctx, span := trace.NewSpan(ctx, "scan-includes-stream")
	defer span.Close(nil)

	s := NewSession(fname, r)
	var includes []Include
	for {
		err := s.SkipHorizontalWhitespace()
		if err != nil {
			return nil, err
		}
		lineno := s.Line()
		ch, err := s.ReadChar()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch ch {
		case '\n':
			continue
		case '#':
		default:
			err = s.SkipToEndOfLine()
			if err != nil {
				return nil, err
			}
			continue
		}
		kind, name, err := s.ParseIncludeTarget(opts.MaxFilenameLength)
		if err != nil {
			return nil, err
		}
		switch kind {
		case UserHeader:
			if log.V(1) {
				clog.Infof(ctx, "include %s %q", kind, name)
			}
			includes = append(includes, Include{Name: name, Kind: kind, Line: lineno})
			err = s.SkipToEndOfLine()
		case SystemHeader:
			// rest of line was already skipped.
			includes = append(includes, Include{Kind: kind, Line: lineno})
		default:
			err = s.SkipToEndOfLine()
		}
		if err != nil {
			return nil, err
		}
	}
	span.SetAttr("includes", len(includes))
	return includes, nil
}
