// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"path/filepath"

	"github.com/gobwas/glob"
	log "github.com/golang/glog"

	"go.chromium.org/infra/build/cdeps/o11y/clog"
	"go.chromium.org/infra/build/cdeps/osfs"
)

// compileGlobs compiles exclude patterns. '*' doesn't match '/'.
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	return globs, nil
}

type walker struct {
	fs       *osfs.OSFS
	root     string
	exts     []string
	excludes []glob.Glob

	files []string
}

// Enumerate returns source files under root, depth first, in lexical
// order of each directory.
// It skips ".git" and entries that match opts.Exclude. It doesn't
// follow symlinks.
func Enumerate(ctx context.Context, fsys *osfs.OSFS, root string, opts Options) ([]string, error) {
	excludes, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}
	w := &walker{
		fs:       fsys,
		root:     root,
		exts:     opts.Extensions,
		excludes: excludes,
	}
	err = w.walk(ctx, root)
	if err != nil {
		return nil, err
	}
	return w.files, nil
}

func (w *walker) walk(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ents, err := w.fs.ReadDir(ctx, dir)
	if err != nil {
		return &TargetError{Path: dir, Msg: "could not open directory", Err: err}
	}
	for _, ent := range ents {
		name := ent.Name()
		switch name {
		case ".", "..", ".git":
			continue
		}
		fname := filepath.Join(dir, name)
		if w.excluded(fname, name) {
			if log.V(1) {
				clog.Infof(ctx, "exclude %s", fname)
			}
			continue
		}
		switch {
		case ent.Type().IsRegular():
			if w.isSource(name) {
				w.files = append(w.files, fname)
			}
		case ent.IsDir():
			err := w.walk(ctx, fname)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) isSource(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range w.exts {
		if ext == e {
			return true
		}
	}
	return false
}

func (w *walker) excluded(fname, name string) bool {
	if len(w.excludes) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, fname)
	if err != nil {
		rel = fname
	}
	rel = filepath.ToSlash(rel)
	for _, g := range w.excludes {
		if g.Match(rel) || g.Match(name) {
			return true
		}
	}
	return false
}
