// Copyright 2026 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package strip is strip subcommand for debugging the comment stripper.
package strip

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/maruel/subcommands"
	"golang.org/x/text/transform"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/cdeps/osfs"
	"go.chromium.org/infra/build/cdeps/scandeps"
)

const usage = `print a source file with comments removed

 $ cdeps strip [-encoding <enc>] <file>

It prints the character stream that scan checks for #include
directives. "//" and "/* */" comments are removed, but not in
string literals.
`

// Cmd returns the Command for the `strip` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "strip <file>",
		ShortDesc: "print a source file with comments removed",
		LongDesc:  usage,
		Advanced:  true,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	encoding string
}

func (c *run) init() {
	c.Flags.StringVar(&c.encoding, "encoding", "", `source encoding: "latin1" or "windows1252". empty for raw bytes`)
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx, a.GetOut(), args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(a.GetErr(), "%v\n%s\n", err, usage)
		default:
			fmt.Fprintf(a.GetErr(), "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("want one file, but got %q: %w", args, flag.ErrHelp)
	}
	enc, err := scandeps.LookupEncoding(c.encoding)
	if err != nil {
		return fmt.Errorf("%w: %w", err, flag.ErrHelp)
	}
	fsys := osfs.New("fs")
	f, err := fsys.Open(ctx, args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	var r io.Reader = f
	if enc != nil {
		r = transform.NewReader(f, enc.NewDecoder())
	}
	w := bufio.NewWriter(out)
	err = scandeps.StripComments(r, w)
	if err != nil {
		return err
	}
	return w.Flush()
}
