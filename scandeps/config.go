// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// Scan modes.
const (
	// ModeLine scans #include in comment-free lines. See ScanIncludes.
	ModeLine = "line"
	// ModeStream scans #include in comment-free character stream.
	// See ScanIncludesStream.
	ModeStream = "stream"
)

// source encodings other than raw bytes.
var encodings = map[string]encoding.Encoding{
	"latin1":      charmap.ISO8859_1,
	"windows1252": charmap.Windows1252,
}

// Options are options of Scanner.
// It can be loaded from YAML config file by LoadConfig.
type Options struct {
	// Extensions are filename extensions of source files
	// to scan in a directory. e.g. ".c".
	Extensions []string `yaml:"extensions"`

	// Exclude are glob patterns of files or directories to skip
	// in a directory. A pattern matches with slash separated path
	// relative to the directory, or base name.
	// ".git" is always skipped.
	Exclude []string `yaml:"exclude"`

	// KeepGoing continues to scan other files when a file fails.
	KeepGoing bool `yaml:"keep_going"`

	// Jobs is number of files scanned concurrently.
	// 0 means number of processors.
	Jobs int `yaml:"jobs"`

	// MaxLineLength limits length of a comment-free line. 0 is no limit.
	MaxLineLength int `yaml:"max_line_length"`

	// MaxFilenameLength limits length of include filename. 0 is no limit.
	MaxFilenameLength int `yaml:"max_filename_length"`

	// Encoding is source encoding. Empty means raw bytes.
	// "latin1" or "windows1252".
	Encoding string `yaml:"encoding"`

	// Mode is ModeLine or ModeStream. Empty means ModeLine.
	Mode string `yaml:"mode"`
}

// DefaultOptions returns options that scan "*.c" files one by one,
// and stop at the first error.
func DefaultOptions() Options {
	return Options{
		Extensions: []string{".c"},
		Jobs:       1,
		Mode:       ModeLine,
	}
}

// LoadConfig loads options from YAML config file fname.
// Keys not in the file keep values of DefaultOptions.
func LoadConfig(fname string) (Options, error) {
	buf, err := os.ReadFile(fname)
	if err != nil {
		return Options{}, err
	}
	opts, err := parseConfig(buf)
	if err != nil {
		return Options{}, fmt.Errorf("load %s: %w", fname, err)
	}
	return opts, nil
}

func parseConfig(buf []byte) (Options, error) {
	opts := DefaultOptions()
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	err := dec.Decode(&opts)
	if err != nil && !errors.Is(err, io.EOF) {
		return Options{}, err
	}
	err = opts.Validate()
	if err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks options.
func (o Options) Validate() error {
	if o.Jobs < 0 {
		return fmt.Errorf("negative jobs %d", o.Jobs)
	}
	if o.MaxLineLength < 0 {
		return fmt.Errorf("negative max_line_length %d", o.MaxLineLength)
	}
	if o.MaxFilenameLength < 0 {
		return fmt.Errorf("negative max_filename_length %d", o.MaxFilenameLength)
	}
	switch o.Mode {
	case "", ModeLine, ModeStream:
	default:
		return fmt.Errorf("unknown mode %q: want %q or %q", o.Mode, ModeLine, ModeStream)
	}
	if _, err := LookupEncoding(o.Encoding); err != nil {
		return err
	}
	for _, ext := range o.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with '.'", ext)
		}
	}
	return nil
}

// LookupEncoding returns source encoding for name.
// It returns nil encoding for empty name, which means raw bytes.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	enc, ok := encodings[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	return enc, nil
}
