// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"errors"
	"io"
)

// HeaderKind is a kind of #include directive.
type HeaderKind int

const (
	// NotInclude means the directive is not #include.
	NotInclude HeaderKind = iota
	// UserHeader is `#include "foo.h"`.
	UserHeader
	// SystemHeader is `#include <foo.h>`.
	SystemHeader
)

func (k HeaderKind) String() string {
	switch k {
	case UserHeader:
		return "user"
	case SystemHeader:
		return "system"
	}
	return "none"
}

// MatchLiteral reads len(text) bytes and reports whether they are text.
//
// It doesn't backtrack: bytes matched before a mismatch stay consumed,
// so it can't be used to try keywords sharing a prefix. The mismatched
// byte itself is put back.
func (s *Session) MatchLiteral(text string) (bool, error) {
	for i := 0; i < len(text); i++ {
		ch, err := s.ReadChar()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if ch != text[i] {
			s.UnreadChar(ch)
			return false, nil
		}
	}
	return true, nil
}

// SkipHorizontalWhitespace skips spaces and tabs.
func (s *Session) SkipHorizontalWhitespace() error {
	for {
		ch, err := s.ReadChar()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if ch != ' ' && ch != '\t' {
			s.UnreadChar(ch)
			return nil
		}
	}
}

// SkipToEndOfLine skips through the next newline or end of stream.
func (s *Session) SkipToEndOfLine() error {
	for {
		ch, err := s.ReadChar()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if ch == '\n' {
			return nil
		}
	}
}

// ReadQuotedFilename reads a filename up to closing '"'.
// The opening '"' must have been consumed already.
// limit <= 0 means no limit on the filename length.
func (s *Session) ReadQuotedFilename(limit int) (string, error) {
	var name []byte
	for {
		ch, err := s.ReadChar()
		if errors.Is(err, io.EOF) {
			return "", s.errorf(UnexpectedEOF, "unexpected end of file in include filename %q", name)
		}
		if err != nil {
			return "", err
		}
		if ch == '"' {
			return string(name), nil
		}
		if limit > 0 && len(name) >= limit {
			return "", s.errorf(TooLong, "include filename is too long (> %d)", limit)
		}
		name = append(name, ch)
	}
}

// ParseIncludeTarget parses the rest of directive after '#'.
// It returns NotInclude if the directive is not "include".
// For UserHeader, it returns the filename and leaves the rest of
// the line unread. For SystemHeader, it skips to end of line and
// returns empty name.
func (s *Session) ParseIncludeTarget(limit int) (HeaderKind, string, error) {
	ok, err := s.MatchLiteral("include")
	if err != nil || !ok {
		return NotInclude, "", err
	}
	err = s.SkipHorizontalWhitespace()
	if err != nil {
		return NotInclude, "", err
	}
	ch, err := s.ReadChar()
	if errors.Is(err, io.EOF) {
		return NotInclude, "", s.errorf(MalformedInclude, "missing include filename")
	}
	if err != nil {
		return NotInclude, "", err
	}
	switch ch {
	case '"':
		name, err := s.ReadQuotedFilename(limit)
		if err != nil {
			return NotInclude, "", err
		}
		return UserHeader, name, nil
	case '<':
		return SystemHeader, "", s.SkipToEndOfLine()
	}
	return NotInclude, "", s.errorf(MalformedInclude, "something wrong with include statement: unexpected %q", ch)
}

// ReadLogicalLine reads one line of the comment-free stream, without
// the newline. It returns io.EOF only when no byte is left; the last
// line doesn't need a newline.
// limit <= 0 means no limit on the line length.
// The returned slice is valid until the next call.
func (s *Session) ReadLogicalLine(limit int) ([]byte, error) {
	buf := s.lineBuf[:0]
	defer func() {
		s.lineBuf = buf[:0]
	}()
	for {
		ch, err := s.ReadChar()
		if errors.Is(err, io.EOF) {
			if len(buf) == 0 {
				return nil, io.EOF
			}
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
		if ch == '\n' {
			return buf, nil
		}
		if limit > 0 && len(buf) >= limit {
			return nil, s.errorf(TooLong, "line is too long (> %d)", limit)
		}
		buf = append(buf, ch)
	}
}
