// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	// MalformedInclude is an #include not followed by '"' or '<'.
	MalformedInclude ErrorKind = iota + 1
	// UnterminatedName is an include name missing its closing delimiter
	// on the directive line.
	UnterminatedName
	// UnexpectedEOF is end of file inside a quoted include name.
	UnexpectedEOF
	// TooLong is a line or include name over the configured limit.
	TooLong
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedInclude:
		return "malformed include"
	case UnterminatedName:
		return "unterminated include name"
	case UnexpectedEOF:
		return "unexpected end of file"
	case TooLong:
		return "too long"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ParseError is a fatal error found while scanning a source file.
type ParseError struct {
	Kind ErrorKind
	Path string
	// Line is 1-based physical line where the error was detected.
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// TargetError is an error about a scan target or a file or directory
// under it, e.g. missing path or unreadable directory.
type TargetError struct {
	Path string
	Msg  string
	Err  error
}

func (e *TargetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Msg, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Path)
}

func (e *TargetError) Unwrap() error { return e.Err }

// ErrFilesFailed is returned by Scan in keep-going mode when some files
// could not be scanned.
var ErrFilesFailed = errors.New("some files failed to scan")

// IsParseError reports whether err has a ParseError of kind in its chain.
func IsParseError(err error, kind ErrorKind) bool {
	var perr *ParseError
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Kind == kind
}
