// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scan is scan subcommand to list user headers of C sources.
package scan

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	glog "github.com/golang/glog"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/cdeps/o11y/clog"
	"go.chromium.org/infra/build/cdeps/o11y/trace"
	"go.chromium.org/infra/build/cdeps/osfs"
	"go.chromium.org/infra/build/cdeps/scandeps"
)

const usage = `list user headers included by C source files

 $ cdeps scan [flags] <target>
 $ cdeps <target>

<target> is a C source file or a directory.
A target named like a command (scan, strip, help, version)
runs the command with "cdeps <target>". Use "cdeps scan <target>"
or "cdeps ./<target>" to scan it.
A file is scanned regardless of its extension.
A directory is walked recursively, and files with -ext
extensions are scanned in lexical order.

For each scanned file, it prints

 Number of include files: <N>

followed by N lines of user header names (#include "foo.h")
in order of appearance. System headers (#include <foo.h>)
are not printed.
`

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

// Cmd returns the Command for the `scan` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "scan [flags] <target>",
		ShortDesc: "list user headers included by C sources",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	configFile        string
	exts              string
	exclude           string
	keepGoing         bool
	jobs              int
	maxLineLength     int
	maxFilenameLength int
	encoding          string
	mode              string
	format            string
	traceFile         string
}

func (c *run) init() {
	c.Flags.StringVar(&c.configFile, "config", "", "YAML config file for scan options. flags override values in the file")
	c.Flags.StringVar(&c.exts, "ext", ".c", "comma separated filename extensions of source files to scan in a directory")
	c.Flags.StringVar(&c.exclude, "exclude", "", "comma separated glob patterns of files or directories to skip in a directory")
	c.Flags.BoolVar(&c.keepGoing, "keep_going", false, "continue to scan other files when a file fails")
	c.Flags.IntVar(&c.jobs, "j", 1, "number of files scanned concurrently. 0 means number of processors")
	c.Flags.IntVar(&c.maxLineLength, "max_line_length", 0, "max length of a comment-free line. 0 is no limit")
	c.Flags.IntVar(&c.maxFilenameLength, "max_filename_length", 0, "max length of a user header name. 0 is no limit")
	c.Flags.StringVar(&c.encoding, "encoding", "", `source encoding: "latin1" or "windows1252". empty for raw bytes`)
	c.Flags.StringVar(&c.mode, "mode", scandeps.ModeLine, `scan mode: "line" or "stream"`)
	c.Flags.StringVar(&c.format, "format", formatText, `output format: "text" or "json"`)
	c.Flags.StringVar(&c.traceFile, "trace", "", "filename to write scan trace in Chrome trace event format")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	switch len(args) {
	case 0:
		c.printUsage(a.GetOut())
		return 0
	case 1:
	default:
		fmt.Fprintf(a.GetErr(), "Error: want one target, but got %d %q\n", len(args), args)
		c.printUsage(a.GetErr())
		return 1
	}
	err := c.run(ctx, a.GetOut(), args[0])
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(a.GetErr(), "%v\n", err)
			c.printUsage(a.GetErr())
		default:
			fmt.Fprintf(a.GetErr(), "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) printUsage(w io.Writer) {
	fmt.Fprintf(w, "%s\nflags:\n", usage)
	c.Flags.SetOutput(w)
	c.Flags.PrintDefaults()
}

func splitList(s string) []string {
	var list []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		list = append(list, v)
	}
	return list
}

// options returns scan options from config file and flags.
// Only flags set in command line override config file.
func (c *run) options() (scandeps.Options, error) {
	opts := scandeps.DefaultOptions()
	if c.configFile != "" {
		var err error
		opts, err = scandeps.LoadConfig(c.configFile)
		if err != nil {
			return opts, err
		}
		log.Infof("loaded config %s", c.configFile)
	}
	visited := make(map[string]bool)
	c.Flags.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})
	set := func(name string) bool {
		return c.configFile == "" || visited[name]
	}
	if set("ext") {
		opts.Extensions = splitList(c.exts)
	}
	if set("exclude") {
		opts.Exclude = splitList(c.exclude)
	}
	if set("keep_going") {
		opts.KeepGoing = c.keepGoing
	}
	if set("j") {
		opts.Jobs = c.jobs
	}
	if set("max_line_length") {
		opts.MaxLineLength = c.maxLineLength
	}
	if set("max_filename_length") {
		opts.MaxFilenameLength = c.maxFilenameLength
	}
	if set("encoding") {
		opts.Encoding = c.encoding
	}
	if set("mode") {
		opts.Mode = c.mode
	}
	err := opts.Validate()
	if err != nil {
		return opts, fmt.Errorf("%w: %w", err, flag.ErrHelp)
	}
	return opts, nil
}

func (c *run) run(ctx context.Context, out io.Writer, target string) error {
	switch c.format {
	case formatText, formatJSON:
	default:
		return fmt.Errorf("unknown format %q: %w", c.format, flag.ErrHelp)
	}
	opts, err := c.options()
	if err != nil {
		return err
	}

	var tc *trace.Context
	started := time.Now()
	if c.traceFile != "" {
		tc = trace.New(ctx, "")
		ctx = trace.NewContext(ctx, tc)
		clog.Infof(ctx, "trace id: %s", trace.ID(ctx))
	}

	fsys := osfs.New("fs")
	s, err := scandeps.New(fsys, opts)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	report := c.textReport(w)
	if c.format == formatJSON {
		report = c.jsonReport(w)
	}
	err = s.Scan(ctx, target, report)
	ferr := w.Flush()
	if err == nil {
		err = ferr
	}

	if glog.V(1) {
		sema := s.Semaphore()
		clog.Infof(ctx, "%s: %s", fsys.Name(), fsys.Stats())
		clog.Infof(ctx, "semaphore %s: capacity=%d requests=%d servs=%d waits=%d", sema.Name(), sema.Capacity(), sema.NumRequests(), sema.NumServs(), sema.NumWaits())
	}
	if tc != nil {
		terr := writeTrace(ctx, fsys, c.traceFile, started, tc.Spans())
		if terr != nil {
			log.Warnf("failed to write trace %s: %v", c.traceFile, terr)
		}
	}
	return err
}

func (c *run) textReport(w io.Writer) func(scandeps.Result) error {
	return func(r scandeps.Result) error {
		if r.Err != nil {
			log.Warnf("skip %s: %v", r.Path, r.Err)
			return nil
		}
		headers := r.UserHeaders()
		_, err := fmt.Fprintf(w, "Number of include files: %d\n", len(headers))
		if err != nil {
			return err
		}
		for _, h := range headers {
			_, err = fmt.Fprintln(w, h)
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// jsonResult is a line of json output.
type jsonResult struct {
	Path     string   `json:"path"`
	Includes []string `json:"includes"`
	Error    string   `json:"error,omitempty"`
}

func (c *run) jsonReport(w io.Writer) func(scandeps.Result) error {
	enc := json.NewEncoder(w)
	return func(r scandeps.Result) error {
		jr := jsonResult{
			Path:     r.Path,
			Includes: r.UserHeaders(),
		}
		if jr.Includes == nil {
			jr.Includes = []string{}
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		return enc.Encode(jr)
	}
}

func writeTrace(ctx context.Context, fsys *osfs.OSFS, fname string, started time.Time, spans []trace.SpanData) error {
	f, err := fsys.Create(ctx, fname)
	if err != nil {
		return err
	}
	err = trace.WriteJSON(f, started, spans)
	cerr := f.Close()
	if err != nil {
		return err
	}
	return cerr
}
