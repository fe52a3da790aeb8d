/*************************************************************************
 * Copyright 2018 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/gravwell/dnsloggen/generators/base"
	"github.com/gravwell/dnsloggen/generators/dnslog"
	"github.com/gravwell/dnsloggen/log"
	"github.com/gravwell/dnsloggen/version"
	"github.com/judwhite/go-svc"

	_ "time/tzdata"
)

const appName = `dnsloggenerator`

var (
	ver = flag.Bool("version", false, "Print the version information and exit")
)

func main() {
	gf := base.RegisterGeneratorFlags(flag.CommandLine)
	flag.Parse()
	if *ver {
		version.PrintVersion(os.Stdout)
		log.PrintOSInfo(os.Stdout)
		return
	}
	cfg, err := gf.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	lg, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start logger: %v\n", err)
		os.Exit(2)
	}
	defer closeLogger(lg)
	kvl := log.NewLoggerWithKV(lg, log.KV("run-id", uuid.New()))

	rng := cfg.Rand()
	src, err := cfg.ClientSource(rng)
	if err != nil {
		lg.FatalCode(2, "failed to build client address source", log.KVErr(err))
	}
	fw, err := base.NewFileWriter(base.FileWriterConfig{
		Path:   cfg.Output,
		Retry:  cfg.Retry,
		Logger: kvl,
	})
	if err != nil {
		lg.FatalCode(2, "failed to create output writer", log.KV("path", cfg.Output), log.KVErr(err))
	}

	var stats base.Stats
	sc := base.StreamConfig{
		Count:   cfg.Count,
		Limiter: base.NewLimiter(cfg.Rate),
		Quiet:   cfg.Quiet,
		Stats:   &stats,
	}
	prg := newGenerator(fw, sc, dnslog.NewGenerator(rng, src).Generate, kvl)

	var su *base.StatusUpdater
	if cfg.Progress {
		if su, err = base.NewStatusUpdater(&stats, os.Stdout); err == nil {
			err = su.Start()
		}
		if err != nil {
			lg.FatalCode(2, "failed to start status updater", log.KVErr(err))
		}
	}

	kvl.Info("generator starting",
		log.KV("version", version.String()),
		log.KV("output", cfg.Output),
		log.KV("count", cfg.Count),
		log.KV("rate", cfg.Rate),
		log.KV("retry-interval", cfg.Retry.Interval))

	err = svc.Run(prg)
	stopProgress(su, kvl)
	totalCount, totalBytes, durr := prg.results()
	if err != nil {
		kvl.Critical("generator failed", log.KV("count", totalCount), log.KVErr(err))
		fmt.Fprintf(os.Stderr, "Failed to generate entries: %v\n", err)
		closeLogger(lg)
		os.Exit(1)
	}
	kvl.Info("generator stopped",
		log.KV("count", totalCount),
		log.KV("bytes", totalBytes),
		log.KV("permission-retries", fw.Retries()))

	fmt.Printf("Completed in %v (%s)\n", durr, base.HumanSize(totalBytes))
	fmt.Printf("Total Count: %s\n", base.HumanCount(totalCount))
	fmt.Printf("Entry Rate: %s\n", base.HumanEntryRate(totalCount, durr))
	fmt.Printf("Write Rate: %s\n", base.HumanRate(totalBytes, durr))
}

// stopProgress halts the progress line, if there is one
func stopProgress(su *base.StatusUpdater, kvl *log.KVLogger) {
	if su == nil {
		return
	}
	if err := su.Stop(); err != nil {
		kvl.Error("failed to stop status updater", log.KVErr(err))
	}
}

// closeLogger reports on stderr, the logger cannot log its own close failure
func closeLogger(lg *log.Logger) {
	if err := lg.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
	}
}

func newLogger(cfg base.GeneratorConfig) (lg *log.Logger, err error) {
	if cfg.LogFile != `` {
		if lg, err = log.NewFile(cfg.LogFile); err != nil {
			return
		}
	} else {
		lg = log.NewStderrLogger()
		lg.EnableRawMode()
	}
	if err = lg.SetAppname(appName); err != nil {
		lg.Close()
		return
	}
	if err = lg.SetLevelString(cfg.LogLevel); err != nil {
		lg.Close()
	}
	return
}
