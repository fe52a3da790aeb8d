/*************************************************************************
 * Copyright 2019 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package base

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/gravwell/dnsloggen/config"
	"github.com/gravwell/dnsloggen/generators/ipgen"
	"github.com/gravwell/dnsloggen/log"
)

const (
	DefaultOutput   = `foo.log`
	DefaultLogLevel = `INFO`
	EnvPrefix       = `DNSGEN_`
	dotEnvFile      = `.env`
)

var (
	ErrBadRate  = errors.New("entry rate must be >= 0")
	ErrNoOutput = errors.New("an output file must be specified")

	ErrFlagsNotParsed = errors.New("generator flags have not been parsed")
)

// GeneratorConfig is the fully resolved generator configuration
type GeneratorConfig struct {
	Output        string
	Count         uint64 // 0 runs until interrupted
	Rate          float64
	Retry         RetryPolicy
	ClientSubnets []string
	Seed          int64 // 0 seeds from the clock
	Quiet         bool
	Progress      bool
	LogLevel      string
	LogFile       string
}

// global is the [Global] section of a config file, names map to
// dash separated keys such as Output-File and Retry-Interval
type global struct {
	Output_File        string
	Entry_Count        uint64
	Entry_Rate         float64
	Retry_Interval     string
	Retry_Multiplier   float64
	Retry_Max_Interval string
	Max_Retries        uint64
	Client_Subnet      []string
	Seed               int64
	Quiet              bool
	Progress           bool
	Log_Level          string
	Log_File           string
}

type cfgFile struct {
	Global global
}

func defaultGlobal() global {
	return global{
		Output_File:        DefaultOutput,
		Retry_Interval:     DefaultRetryInterval.String(),
		Retry_Multiplier:   1,
		Retry_Max_Interval: DefaultRetryMaxInterval.String(),
		Log_Level:          DefaultLogLevel,
	}
}

type stringList []string

func (sl *stringList) String() string {
	return strings.Join(*sl, ",")
}

func (sl *stringList) Set(v string) error {
	*sl = append(*sl, v)
	return nil
}

// GeneratorFlags are the generator flags registered on a FlagSet. Resolve
// layers them over the config file and environment once the set is parsed.
type GeneratorFlags struct {
	fs            *flag.FlagSet
	configFile    *string
	output        *string
	count         *uint64
	rate          *float64
	retryInterval *string
	retryMult     *float64
	retryMax      *string
	maxRetries    *uint64
	subnets       stringList
	seed          *int64
	quiet         *bool
	progress      *bool
	logLevel      *string
	logFile       *string
}

func RegisterGeneratorFlags(fs *flag.FlagSet) *GeneratorFlags {
	gf := &GeneratorFlags{
		fs:            fs,
		configFile:    fs.String("config-file", "", "Path to a config file with a [Global] section"),
		output:        fs.String("output", DefaultOutput, "File the generated entries are appended to"),
		count:         fs.Uint64("entry-count", 0, "Number of entries to generate, 0 runs until interrupted"),
		rate:          fs.Float64("entry-rate", 0, "Entries per second, 0 is unthrottled"),
		retryInterval: fs.String("retry-interval", DefaultRetryInterval.String(), "Wait between attempts when the output is not writable"),
		retryMult:     fs.Float64("retry-multiplier", 1, "Backoff multiplier applied to the retry interval, 1 keeps it fixed"),
		retryMax:      fs.String("retry-max-interval", DefaultRetryMaxInterval.String(), "Upper bound on the retry wait"),
		maxRetries:    fs.Uint64("max-retries", 0, "Give up on an entry after this many retries, 0 retries forever"),
		seed:          fs.Int64("seed", 0, "Random seed, 0 seeds from the clock"),
		quiet:         fs.Bool("quiet", false, "Do not print a status line for every entry"),
		progress:      fs.Bool("progress", false, "Print running totals and rates once per second, implies -quiet"),
		logLevel:      fs.String("log-level", DefaultLogLevel, "Diagnostic log level"),
		logFile:       fs.String("log-file", "", "Write diagnostic logs to a rotated file instead of stderr"),
	}
	fs.Var(&gf.subnets, "client-subnet", "CIDR to draw client addresses from, may be repeated (default 192.168.[1-255].[1-255])")
	return gf
}

// ParseGeneratorConfig registers the generator flags on fs, parses args and
// resolves the layered configuration
func ParseGeneratorConfig(fs *flag.FlagSet, args []string) (gc GeneratorConfig, err error) {
	gf := RegisterGeneratorFlags(fs)
	if err = fs.Parse(args); err != nil {
		return
	}
	return gf.Resolve()
}

// Resolve layers the configuration: defaults, then the config file, then
// .env and DNSGEN_* environment variables, then any flags explicitly set on
// the command line. The FlagSet must already be parsed.
func (gf *GeneratorFlags) Resolve() (gc GeneratorConfig, err error) {
	if !gf.fs.Parsed() {
		err = ErrFlagsNotParsed
		return
	}
	if err = config.LoadDotEnv(dotEnvFile); err != nil {
		return
	}

	g := defaultGlobal()
	cfgPath := *gf.configFile
	if cfgPath == `` {
		if err = config.LoadEnvVar(&cfgPath, EnvPrefix+`CONFIG_FILE`); err != nil {
			return
		}
	}
	if cfgPath != `` {
		cf := cfgFile{Global: g}
		if err = config.LoadConfigFile(&cf, cfgPath); err != nil {
			err = fmt.Errorf("failed to load config file %q: %w", cfgPath, err)
			return
		}
		g = cf.Global
	}
	if err = g.loadEnv(); err != nil {
		return
	}
	gf.fs.Visit(func(f *flag.Flag) {
		gf.apply(f.Name, &g)
	})
	return g.resolve()
}

func (g *global) loadEnv() error {
	vars := []struct {
		dst interface{}
		nm  string
	}{
		{&g.Output_File, `OUTPUT_FILE`},
		{&g.Entry_Count, `ENTRY_COUNT`},
		{&g.Entry_Rate, `ENTRY_RATE`},
		{&g.Retry_Interval, `RETRY_INTERVAL`},
		{&g.Retry_Multiplier, `RETRY_MULTIPLIER`},
		{&g.Retry_Max_Interval, `RETRY_MAX_INTERVAL`},
		{&g.Max_Retries, `MAX_RETRIES`},
		{&g.Client_Subnet, `CLIENT_SUBNET`},
		{&g.Seed, `SEED`},
		{&g.Quiet, `QUIET`},
		{&g.Progress, `PROGRESS`},
		{&g.Log_Level, `LOG_LEVEL`},
		{&g.Log_File, `LOG_FILE`},
	}
	for _, v := range vars {
		if err := config.LoadEnvVar(v.dst, EnvPrefix+v.nm); err != nil {
			return err
		}
	}
	return nil
}

func (gf *GeneratorFlags) apply(name string, g *global) {
	switch name {
	case `output`:
		g.Output_File = *gf.output
	case `entry-count`:
		g.Entry_Count = *gf.count
	case `entry-rate`:
		g.Entry_Rate = *gf.rate
	case `retry-interval`:
		g.Retry_Interval = *gf.retryInterval
	case `retry-multiplier`:
		g.Retry_Multiplier = *gf.retryMult
	case `retry-max-interval`:
		g.Retry_Max_Interval = *gf.retryMax
	case `max-retries`:
		g.Max_Retries = *gf.maxRetries
	case `client-subnet`:
		g.Client_Subnet = append([]string(nil), gf.subnets...)
	case `seed`:
		g.Seed = *gf.seed
	case `quiet`:
		g.Quiet = *gf.quiet
	case `progress`:
		g.Progress = *gf.progress
	case `log-level`:
		g.Log_Level = *gf.logLevel
	case `log-file`:
		g.Log_File = *gf.logFile
	}
}

func (g global) resolve() (gc GeneratorConfig, err error) {
	if gc.Output = strings.TrimSpace(g.Output_File); gc.Output == `` {
		err = ErrNoOutput
		return
	}
	if g.Entry_Rate < 0 {
		err = ErrBadRate
		return
	}
	if _, err = log.LevelFromString(g.Log_Level); err != nil {
		err = fmt.Errorf("invalid log level %q: %w", g.Log_Level, err)
		return
	}
	gc.Retry = RetryPolicy{
		Multiplier: g.Retry_Multiplier,
		MaxRetries: g.Max_Retries,
	}
	if gc.Retry.Interval, err = config.ParseDuration(g.Retry_Interval); err != nil {
		return
	}
	if g.Retry_Max_Interval != `` {
		if gc.Retry.MaxInterval, err = config.ParseDuration(g.Retry_Max_Interval); err != nil {
			return
		}
	}
	if err = gc.Retry.Validate(); err != nil {
		return
	}
	if len(g.Client_Subnet) > 0 {
		if _, err = ipgen.ParseV4Generator(g.Client_Subnet, nil); err != nil {
			err = fmt.Errorf("invalid client subnet: %w", err)
			return
		}
	}
	gc.Count = g.Entry_Count
	gc.Rate = g.Entry_Rate
	gc.ClientSubnets = g.Client_Subnet
	gc.Seed = g.Seed
	gc.Progress = g.Progress
	// the per entry status line would garble the progress line
	gc.Quiet = g.Quiet || g.Progress
	gc.LogLevel = g.Log_Level
	gc.LogFile = g.Log_File
	return
}

// Rand returns the random source the configuration asks for
func (gc GeneratorConfig) Rand() *rand.Rand {
	seed := gc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// ClientSource returns the client address generator, the private
// 192.168.X.Y range unless client subnets are configured
func (gc GeneratorConfig) ClientSource(rng *rand.Rand) (ipgen.Source, error) {
	if len(gc.ClientSubnets) == 0 {
		return ipgen.PrivateV4Generator(rng), nil
	}
	return ipgen.ParseV4Generator(gc.ClientSubnets, rng)
}
