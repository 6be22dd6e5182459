// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scandeps provides a simple C dependency lister.
// It reports user headers included by each C source file, without
// resolving them in include dirs.
//
// It only checks the following forms of #include
//
//	#include "foo.h"
//	#include <foo.h>
//
// "foo.h" is reported as a user header, and <foo.h> is a system
// header that is not reported.  `#include FOO_H` is an error,
// since it doesn't process `#define`, `#if` or `#ifdef`.
//
// Comments are removed before checking directives, so
//
//	#include /* comment */ "foo.h" // comment
//
// is handled, and `#include` in a comment is ignored.
// "//" or "/*" in a string literal doesn't start a comment.
// It doesn't support multiline (\ at the end of line) for directives.
package scandeps
