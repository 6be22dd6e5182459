// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// internal lexer values outside of byte range.
const (
	eof = -1
	// ignore replaces a whole block comment. never returned from ReadChar.
	ignore = -2
)

// Session is a comment-free view of one source file.
//
// It removes // and /* */ comments from the byte stream, while bytes in
// string literals are passed as is, so "//" or "/*" in a string literal
// doesn't start a comment. A line comment is replaced with '\n', and
// a block comment is removed entirely, even if it spans lines.
// Block comment that is not closed at end of file ends at end of file.
//
// Session is not safe for concurrent use. Use one Session per file.
type Session struct {
	fname string
	r     *bufio.Reader
	err   error

	// raw pushback for the lexer's own lookahead.
	pushed    byte
	hasPushed bool

	// byte following backslash in a string literal.
	pending    int
	hasPending bool

	// logical pushback for callers. see UnreadChar.
	unread    byte
	hasUnread bool

	inString bool
	line     int

	// reused by ReadLogicalLine.
	lineBuf []byte
}

// NewSession creates a new session reading source of fname from r.
// fname is only used in error messages.
func NewSession(fname string, r io.Reader) *Session {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Session{
		fname: fname,
		r:     br,
		line:  1,
	}
}

// Line returns 1-based physical line number of the next raw byte.
func (s *Session) Line() int {
	return s.line
}

// InString reports whether the session is inside a string literal.
func (s *Session) InString() bool {
	return s.inString
}

func (s *Session) readRaw() int {
	var ch byte
	if s.hasPushed {
		ch = s.pushed
		s.hasPushed = false
	} else {
		if s.err != nil {
			return eof
		}
		var err error
		ch, err = s.r.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			return eof
		}
	}
	if ch == '\n' {
		s.line++
	}
	return int(ch)
}

func (s *Session) pushRaw(ch byte) {
	if s.hasPushed {
		panic("scandeps: raw pushback slot is full")
	}
	if ch == '\n' {
		s.line--
	}
	s.pushed = ch
	s.hasPushed = true
}

func (s *Session) skipLineComment() {
	for {
		ch := s.readRaw()
		if ch == eof || ch == '\n' {
			return
		}
	}
}

func (s *Session) skipBlockComment() {
	for {
		ch := s.readRaw()
		if ch == eof {
			return
		}
		if ch != '*' {
			continue
		}
		ch = s.readRaw()
		switch ch {
		case '/', eof:
			return
		}
		// keep it to detect "**/".
		s.pushRaw(byte(ch))
	}
}

// readSource returns next byte with comments replaced,
// or eof, or ignore.
func (s *Session) readSource() int {
	if s.hasPending {
		s.hasPending = false
		return s.pending
	}
	ch := s.readRaw()
	if ch == eof {
		return eof
	}
	if s.inString {
		switch ch {
		case '\\':
			s.pending = s.readRaw()
			s.hasPending = true
		case '"':
			s.inString = false
		}
		return ch
	}
	switch ch {
	case '"':
		s.inString = true
	case '/':
		next := s.readRaw()
		switch next {
		case eof:
			return eof
		case '/':
			s.skipLineComment()
			return '\n'
		case '*':
			s.skipBlockComment()
			return ignore
		}
		s.pushRaw(byte(next))
	}
	return ch
}

// ReadChar returns the next byte of the comment-free stream.
// It returns io.EOF at end of stream, or an error if reading
// the underlying reader failed.
func (s *Session) ReadChar() (byte, error) {
	if s.hasUnread {
		s.hasUnread = false
		return s.unread, nil
	}
	for {
		ch := s.readSource()
		switch ch {
		case ignore:
			continue
		case eof:
			if s.err != nil {
				return 0, s.err
			}
			return 0, io.EOF
		}
		return byte(ch), nil
	}
}

func (s *Session) errorf(kind ErrorKind, format string, args ...any) error {
	return &ParseError{
		Kind: kind,
		Path: s.fname,
		Line: s.line,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// UnreadChar puts c back so the next ReadChar returns it.
// c is returned as is, without being lexed again.
// At most one byte can be put back between ReadChar calls.
func (s *Session) UnreadChar(c byte) {
	if s.hasUnread {
		panic("scandeps: UnreadChar called twice")
	}
	s.unread = c
	s.hasUnread = true
}

// StripComments copies source from r to w with comments removed.
func StripComments(r io.Reader, w io.Writer) error {
	s := NewSession("", r)
	bw := bufio.NewWriter(w)
	for {
		ch, err := s.ReadChar()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		err = bw.WriteByte(ch)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
