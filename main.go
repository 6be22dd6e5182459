// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	log "github.com/golang/glog"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/cdeps/o11y/clog"
	"go.chromium.org/infra/build/cdeps/subcmd/help"
	"go.chromium.org/infra/build/cdeps/subcmd/scan"
	"go.chromium.org/infra/build/cdeps/subcmd/strip"
	"go.chromium.org/infra/build/cdeps/subcmd/version"
)

const cdepsVersion = "v0.1.0"

// cdeps lists user headers included by C source files.

func main() {
	os.Exit(cdepsMain())
}

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "cdeps",
		Title: "C include dependency lister",
		Context: func(ctx context.Context) context.Context {
			ctx, cancel := context.WithCancel(ctx)
			signals.HandleInterrupt(cancel)
			return clog.NewContext(ctx, clog.New(ctx))
		},
		Commands: []*subcommands.Command{
			scan.Cmd(),
			strip.Cmd(),
			help.Cmd(),
			version.Cmd(cdepsVersion),
		},
	}
}

// commandArgs returns args for subcommands.Run.
// A target without a command name is scanned. A command name wins over
// a target of the same name, which needs "scan" or a "./" prefix.
func commandArgs(a subcommands.Application, args []string) []string {
	for _, c := range a.GetCommands() {
		if c.Name() == args[0] {
			return args
		}
	}
	return append([]string{"scan"}, args...)
}

func cdepsMain() int {
	a := getApplication()
	flag.Usage = func() {
		help.Usage(a, false)
	}
	flag.Parse()

	// Flush the log on exit to not lose any messages.
	defer log.Flush()

	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()

	if log.V(1) {
		buildinfo, ok := debug.ReadBuildInfo()
		log.Infof("buildinfo: path=%q ok=%t", buildinfo.Path, ok)
		if ok {
			log.Infof("main module: %s %s", moduleInfo(&buildinfo.Main), vcsInfo(buildinfo))
		}
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 0
	}
	return subcommands.Run(a, commandArgs(a, args))
}

func moduleInfo(m *debug.Module) string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("path:%s version:%s sum:%s replace:%s", m.Path, m.Version, m.Sum, moduleInfo(m.Replace))
}

func vcsInfo(buildinfo *debug.BuildInfo) string {
	m := make(map[string]string)
	for _, bs := range buildinfo.Settings {
		if strings.HasPrefix(bs.Key, "vcs.") {
			m[bs.Key] = bs.Value
		}
	}
	return fmt.Sprintf("vcs[revision=%s time=%s modified=%s]", m["vcs.revision"], m["vcs.time"], m["vcs.modified"])
}
