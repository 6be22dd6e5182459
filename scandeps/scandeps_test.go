// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/build/cdeps/o11y/trace"
	"go.chromium.org/infra/build/cdeps/osfs"
)

func setupFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for fname, content := range files {
		fname := filepath.Join(dir, fname)
		err := os.MkdirAll(filepath.Dir(fname), 0755)
		if err != nil {
			t.Fatal(err)
		}
		err = os.WriteFile(fname, []byte(content), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}
}

type scanned struct {
	Path     string
	Includes []string
	Failed   bool
}

func scanAll(ctx context.Context, t *testing.T, target string, opts Options) ([]scanned, error) {
	t.Helper()
	s, err := New(osfs.New("test"), opts)
	if err != nil {
		t.Fatalf("New(fs, %#v)=%v", opts, err)
	}
	var got []scanned
	err = s.Scan(ctx, target, func(r Result) error {
		rel, err := filepath.Rel(target, r.Path)
		if err != nil || rel == "." {
			rel = filepath.Base(r.Path)
		}
		got = append(got, scanned{
			Path:     filepath.ToSlash(rel),
			Includes: r.UserHeaders(),
			Failed:   r.Err != nil,
		})
		return nil
	})
	return got, err
}

var testTree = map[string]string{
	"main.c": `#include "a.h"
/* #include "b.h" */
#include <stdio.h>
#include "c.h" // trailing comment
`,
	"lib/util.c": `#include "util.h"
#include <string.h>
`,
	"lib/util.h": `#include "not-scanned.h"
`,
	"lib/sub/z.c": `#include "z.h"
`,
	"lib/empty.c":     "",
	".git/hooks/x.c":  `#include "git.h"`,
	"README":          `#include "readme.h"`,
	"docs/example.cc": `#include "cc.h"`,
}

func TestScanDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, testTree)

	got, err := scanAll(ctx, t, dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Scan(ctx, %q)=%v; want nil error", dir, err)
	}
	want := []scanned{
		{Path: "lib/empty.c"},
		{Path: "lib/sub/z.c", Includes: []string{"z.h"}},
		{Path: "lib/util.c", Includes: []string{"util.h"}},
		{Path: "main.c", Includes: []string{"a.h", "c.h"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan(ctx, %q) diff -want +got:\n%s", dir, diff)
	}
}

func TestScanDirParallel(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	files := make(map[string]string)
	var want []scanned
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name+".c"] = "#include \"" + name + ".h\"\n"
		want = append(want, scanned{Path: name + ".c", Includes: []string{name + ".h"}})
	}
	setupFiles(t, dir, files)

	opts := DefaultOptions()
	opts.Jobs = 4
	got, err := scanAll(ctx, t, dir, opts)
	if err != nil {
		t.Fatalf("Scan(ctx, %q)=%v; want nil error", dir, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan(ctx, %q) -j 4 diff -want +got:\n%s", dir, diff)
	}
}

func TestScanDirExtensionsAndExclude(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, testTree)

	opts := DefaultOptions()
	opts.Extensions = []string{".c", ".cc"}
	opts.Exclude = []string{"sub", "lib/util.*"}
	got, err := scanAll(ctx, t, dir, opts)
	if err != nil {
		t.Fatalf("Scan(ctx, %q)=%v; want nil error", dir, err)
	}
	want := []scanned{
		{Path: "docs/example.cc", Includes: []string{"cc.h"}},
		{Path: "lib/empty.c"},
		{Path: "main.c", Includes: []string{"a.h", "c.h"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan(ctx, %q) diff -want +got:\n%s", dir, diff)
	}
}

func TestScanFileTarget(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, testTree)

	// file target is scanned regardless of extension.
	target := filepath.Join(dir, "lib/util.h")
	got, err := scanAll(ctx, t, target, DefaultOptions())
	if err != nil {
		t.Fatalf("Scan(ctx, %q)=%v; want nil error", target, err)
	}
	want := []scanned{
		{Path: "util.h", Includes: []string{"not-scanned.h"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan(ctx, %q) diff -want +got:\n%s", target, diff)
	}
}

func TestScanMalformedAborts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"a.c":   `#include "a.h"`,
		"b.c":   "#include \"b.h\"\n#include FOO_H\n",
		"c.c":   `#include "c.h"`,
		"d/d.c": `#include "d.h"`,
	})

	for _, jobs := range []int{1, 3} {
		opts := DefaultOptions()
		opts.Jobs = jobs
		got, err := scanAll(ctx, t, dir, opts)
		var perr *ParseError
		if !errors.As(err, &perr) || perr.Kind != MalformedInclude {
			t.Fatalf("jobs=%d: Scan(ctx, %q)=%v; want %v error", jobs, dir, err, MalformedInclude)
		}
		if perr.Path != filepath.Join(dir, "b.c") || perr.Line != 2 {
			t.Errorf("jobs=%d: error at %s:%d; want %s:2", jobs, perr.Path, perr.Line, filepath.Join(dir, "b.c"))
		}
		want := []scanned{
			{Path: "a.c", Includes: []string{"a.h"}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("jobs=%d: Scan(ctx, %q) diff -want +got:\n%s", jobs, dir, diff)
		}
	}
}

func TestScanKeepGoing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"a.c": `#include "a.h"`,
		"b.c": "#include <b.h\n",
		"c.c": `#include "c.h"`,
	})

	opts := DefaultOptions()
	opts.KeepGoing = true
	got, err := scanAll(ctx, t, dir, opts)
	if !errors.Is(err, ErrFilesFailed) {
		t.Errorf("Scan(ctx, %q)=%v; want %v", dir, err, ErrFilesFailed)
	}
	want := []scanned{
		{Path: "a.c", Includes: []string{"a.h"}},
		{Path: "b.c", Failed: true},
		{Path: "c.c", Includes: []string{"c.h"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan(ctx, %q) diff -want +got:\n%s", dir, diff)
	}
}

func TestScanStreamMode(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, testTree)

	opts := DefaultOptions()
	opts.Mode = ModeStream
	got, err := scanAll(ctx, t, filepath.Join(dir, "main.c"), opts)
	if err != nil {
		t.Fatalf("Scan(ctx, main.c)=%v; want nil error", err)
	}
	want := []scanned{
		{Path: "main.c", Includes: []string{"a.h", "c.h"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan(ctx, main.c) stream diff -want +got:\n%s", diff)
	}
}

func TestScanEncoding(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"a.c": "#include \"caf\xe9.h\"\n",
	})
	target := filepath.Join(dir, "a.c")

	for _, tc := range []struct {
		encoding string
		want     string
	}{
		{encoding: "", want: "caf\xe9.h"},
		{encoding: "latin1", want: "café.h"},
		{encoding: "windows1252", want: "café.h"},
	} {
		opts := DefaultOptions()
		opts.Encoding = tc.encoding
		got, err := scanAll(ctx, t, target, opts)
		if err != nil {
			t.Fatalf("encoding=%q: Scan(ctx, %q)=%v", tc.encoding, target, err)
		}
		if len(got) != 1 || len(got[0].Includes) != 1 || got[0].Includes[0] != tc.want {
			t.Errorf("encoding=%q: Scan(ctx, %q)=%v; want include %q", tc.encoding, target, got, tc.want)
		}
	}
}

func TestScanTargetError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(osfs.New("test"), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "missing")
	err = s.Scan(ctx, target, func(Result) error {
		t.Errorf("report called for missing target")
		return nil
	})
	var terr *TargetError
	if !errors.As(err, &terr) || terr.Path != target {
		t.Errorf("Scan(ctx, %q)=%v; want TargetError", target, err)
	}
}

func TestScanReportError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, testTree)
	s, err := New(osfs.New("test"), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	wantErr := errors.New("stdout closed")
	n := 0
	err = s.Scan(ctx, dir, func(Result) error {
		n++
		return wantErr
	})
	if !errors.Is(err, wantErr) || n != 1 {
		t.Errorf("Scan(ctx, %q)=%v, reported %d; want %v, 1", dir, err, n, wantErr)
	}
}

func TestScanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	setupFiles(t, dir, testTree)
	_, err := scanAll(ctx, t, dir, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Scan(canceled ctx, %q)=%v; want %v", dir, err, context.Canceled)
	}
}

func TestScanTrace(t *testing.T) {
	ctx := context.Background()
	tc := trace.New(ctx, "")
	ctx = trace.NewContext(ctx, tc)
	dir := t.TempDir()
	setupFiles(t, dir, testTree)

	_, err := scanAll(ctx, t, dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Scan(ctx, %q)=%v", dir, err)
	}
	files := 0
	for _, sd := range tc.Spans() {
		if sd.Name != "scan-file" {
			continue
		}
		files++
		if tid, _ := sd.Attrs["tid"].(int); tid != 1 {
			t.Errorf("span %v tid=%v; want 1", sd.Attrs["file"], sd.Attrs["tid"])
		}
	}
	if files != 4 {
		t.Errorf("scan-file spans=%d; want 4", files)
	}
}

func TestEnumerateUnreadableDir(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can read any directory")
	}
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{"locked/a.c": ""})
	locked := filepath.Join(dir, "locked")
	err := os.Chmod(locked, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	_, err = Enumerate(ctx, osfs.New("test"), dir, DefaultOptions())
	var terr *TargetError
	if !errors.As(err, &terr) || terr.Path != locked {
		t.Errorf("Enumerate(ctx, fs, %q)=%v; want TargetError for %q", dir, err, locked)
	}
}
