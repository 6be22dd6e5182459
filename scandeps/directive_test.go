// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// rest returns unread bytes of the session.
func rest(t *testing.T, s *Session) string {
	t.Helper()
	var sb strings.Builder
	for {
		ch, err := s.ReadChar()
		if errors.Is(err, io.EOF) {
			return sb.String()
		}
		if err != nil {
			t.Fatalf("ReadChar()=%v", err)
		}
		sb.WriteByte(ch)
	}
}

func TestMatchLiteral(t *testing.T) {
	for _, tc := range []struct {
		input    string
		text     string
		want     bool
		wantRest string
	}{
		{input: "include <a.h>", text: "include", want: true, wantRest: " <a.h>"},
		{input: "inc/* c */lude x", text: "include", want: true, wantRest: " x"},
		{input: "define X", text: "include", want: false, wantRest: "define X"},
		{input: "inclx", text: "include", want: false, wantRest: "x"},
		{input: "inc\nnext", text: "include", want: false, wantRest: "\nnext"},
		{input: "inc", text: "include", want: false, wantRest: ""},
		{input: "Include", text: "include", want: false, wantRest: "Include"},
	} {
		s := NewSession("a.c", strings.NewReader(tc.input))
		got, err := s.MatchLiteral(tc.text)
		if err != nil || got != tc.want {
			t.Errorf("MatchLiteral(%q) on %q=%t, %v; want %t, nil", tc.text, tc.input, got, err, tc.want)
		}
		if r := rest(t, s); r != tc.wantRest {
			t.Errorf("MatchLiteral(%q) on %q: rest=%q; want %q", tc.text, tc.input, r, tc.wantRest)
		}
	}
}

func TestSkipHorizontalWhitespace(t *testing.T) {
	for _, tc := range []struct {
		input    string
		wantRest string
	}{
		{input: " \t x", wantRest: "x"},
		{input: " /* c */ \"a.h\"", wantRest: `"a.h"`},
		{input: "  \nx", wantRest: "\nx"},
		{input: "   ", wantRest: ""},
		{input: "", wantRest: ""},
	} {
		s := NewSession("a.c", strings.NewReader(tc.input))
		err := s.SkipHorizontalWhitespace()
		if err != nil {
			t.Errorf("SkipHorizontalWhitespace() on %q=%v; want nil", tc.input, err)
		}
		if r := rest(t, s); r != tc.wantRest {
			t.Errorf("SkipHorizontalWhitespace() on %q: rest=%q; want %q", tc.input, r, tc.wantRest)
		}
	}
}

func TestSkipToEndOfLine(t *testing.T) {
	for _, tc := range []struct {
		input    string
		wantRest string
	}{
		{input: "abc\ndef", wantRest: "def"},
		{input: "abc // c\ndef", wantRest: "def"},
		{input: "a /* \n */ b\ndef", wantRest: "def"},
		{input: "abc", wantRest: ""},
	} {
		s := NewSession("a.c", strings.NewReader(tc.input))
		err := s.SkipToEndOfLine()
		if err != nil {
			t.Errorf("SkipToEndOfLine() on %q=%v; want nil", tc.input, err)
		}
		if r := rest(t, s); r != tc.wantRest {
			t.Errorf("SkipToEndOfLine() on %q: rest=%q; want %q", tc.input, r, tc.wantRest)
		}
	}
}

func TestReadQuotedFilename(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    string
		limit    int
		want     string
		wantKind ErrorKind
	}{
		{name: "ok", input: `foo/bar.h" // c`, want: "foo/bar.h"},
		{name: "comment-in-name", input: `a//b.h"`, want: "a//b.h"},
		{name: "at-limit", input: `abc"`, limit: 3, want: "abc"},
		{name: "over-limit", input: `abcd"`, limit: 3, wantKind: TooLong},
		{name: "eof", input: `foo.h`, wantKind: UnexpectedEOF},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession("a.c", strings.NewReader(`"`+tc.input))
			if ch, err := s.ReadChar(); err != nil || ch != '"' {
				t.Fatalf("ReadChar()=%q, %v; want '\"'", ch, err)
			}
			got, err := s.ReadQuotedFilename(tc.limit)
			if tc.wantKind != 0 {
				if !IsParseError(err, tc.wantKind) {
					t.Errorf("ReadQuotedFilename(%d)=%q, %v; want %v error", tc.limit, got, err, tc.wantKind)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("ReadQuotedFilename(%d)=%q, %v; want %q, nil", tc.limit, got, err, tc.want)
			}
		})
	}
}

func TestParseIncludeTarget(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    string
		wantKind HeaderKind
		wantName string
		wantRest string
		wantErr  ErrorKind
	}{
		{
			name:     "user",
			input:    "include \"foo.h\" // c\nnext",
			wantKind: UserHeader,
			wantName: "foo.h",
			wantRest: " \nnext",
		},
		{
			name:     "user-no-space",
			input:    "include\t\"foo.h\"",
			wantKind: UserHeader,
			wantName: "foo.h",
		},
		{
			name:     "user-comment-before-name",
			input:    "include /* c */ \"foo.h\"",
			wantKind: UserHeader,
			wantName: "foo.h",
		},
		{
			name:     "system",
			input:    "include <stdio.h>\nnext",
			wantKind: SystemHeader,
			wantRest: "next",
		},
		{
			name:     "not-include",
			input:    "define X 1\n",
			wantKind: NotInclude,
			wantRest: "define X 1\n",
		},
		{
			name:     "short",
			input:    "inc",
			wantKind: NotInclude,
		},
		{
			name:    "macro",
			input:   "include FOO_H\n",
			wantErr: MalformedInclude,
		},
		{
			name:    "no-name",
			input:   "include",
			wantErr: MalformedInclude,
		},
		{
			name:    "unterminated",
			input:   "include \"foo.h",
			wantErr: UnexpectedEOF,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession("a.c", strings.NewReader(tc.input))
			kind, name, err := s.ParseIncludeTarget(0)
			if tc.wantErr != 0 {
				if !IsParseError(err, tc.wantErr) {
					t.Errorf("ParseIncludeTarget()=%v, %q, %v; want %v error", kind, name, err, tc.wantErr)
				}
				return
			}
			if err != nil || kind != tc.wantKind || name != tc.wantName {
				t.Errorf("ParseIncludeTarget()=%v, %q, %v; want %v, %q, nil", kind, name, err, tc.wantKind, tc.wantName)
			}
			if r := rest(t, s); r != tc.wantRest {
				t.Errorf("ParseIncludeTarget() rest=%q; want %q", r, tc.wantRest)
			}
		})
	}
}

func TestReadLogicalLine(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "lines",
			input: "a\nb\n",
			want:  []string{"a", "b"},
		},
		{
			name:  "no-trailing-newline",
			input: "a\nb",
			want:  []string{"a", "b"},
		},
		{
			name:  "empty-lines",
			input: "\n\na\n",
			want:  []string{"", "", "a"},
		},
		{
			name:  "comments",
			input: "#include \"a.h\" // c\n/* x\ny */#include <b.h>\n",
			want:  []string{`#include "a.h" `, "#include <b.h>"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession("a.c", strings.NewReader(tc.input))
			var got []string
			for {
				line, err := s.ReadLogicalLine(0)
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("ReadLogicalLine(0)=%q, %v", line, err)
				}
				got = append(got, string(line))
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("lines diff -want +got:\n%s", diff)
			}
		})
	}
}

func TestReadLogicalLineLimit(t *testing.T) {
	s := NewSession("a.c", strings.NewReader("abc\nabcd\n"))
	line, err := s.ReadLogicalLine(3)
	if err != nil || string(line) != "abc" {
		t.Errorf("ReadLogicalLine(3)=%q, %v; want %q, nil", line, err, "abc")
	}
	line, err = s.ReadLogicalLine(3)
	if !IsParseError(err, TooLong) {
		t.Errorf("ReadLogicalLine(3)=%q, %v; want %v error", line, err, TooLong)
	}
	var perr *ParseError
	if errors.As(err, &perr) && (perr.Path != "a.c" || perr.Line != 2) {
		t.Errorf("error location=%s:%d; want a.c:2", perr.Path, perr.Line)
	}
}
