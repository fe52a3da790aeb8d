/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	fileSuffix = `_FILE`
)

var (
	errNoEnvArg     = errors.New("no env arg")
	ErrInvalidArg   = errors.New("Invalid arguments")
	ErrEmptyEnvFile = errors.New("Environment secret file is empty")
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables that are already set are not overwritten and missing
// files are not an error.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %q %w", f, err)
		}
	}
	return nil
}

func loadEnvFile(nm string) (r string, err error) {
	var fin *os.File
	if fin, err = os.Open(nm); err != nil {
		// they specified a file but we can't open it
		return
	}
	s := bufio.NewScanner(fin)
	s.Scan()
	if err = s.Err(); err != nil {
		fin.Close()
		return
	}
	r = s.Text()
	if err = fin.Close(); err != nil {
		return
	} else if r == `` {
		err = ErrEmptyEnvFile
	}
	return
}

func loadEnv(nm string) (s string, err error) {
	var ok bool
	if s, ok = os.LookupEnv(nm); ok {
		return
	}
	//try to load the FILE version
	if fp, ok := os.LookupEnv(nm + fileSuffix); ok {
		s, err = loadEnvFile(fp)
	} else {
		err = errNoEnvArg
	}
	return
}

// LoadEnvVar reads the environment variable envName into cnd. If the
// variable is not set, envName_FILE is checked for a path whose first line
// holds the value. When neither is present cnd is left untouched, so values
// from earlier configuration layers survive.
func LoadEnvVar(cnd interface{}, envName string) (err error) {
	if cnd == nil || envName == `` {
		return ErrInvalidArg
	}
	var s string
	if s, err = loadEnv(envName); err == errNoEnvArg {
		return nil
	} else if err != nil {
		return
	}
	s = strings.TrimSpace(s)

	switch v := cnd.(type) {
	case *string:
		*v = s
	case *bool:
		*v, err = ParseBool(s)
	case *int:
		*v, err = cast.ToIntE(s)
	case *int64:
		*v, err = ParseInt64(s)
	case *uint64:
		*v, err = ParseUint64(s)
	case *float64:
		*v, err = cast.ToFloat64E(s)
	case *time.Duration:
		*v, err = ParseDuration(s)
	case *[]string:
		var r []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != `` {
				r = append(r, p)
			}
		}
		*v = r
	default:
		return ErrInvalidArg
	}
	if err != nil {
		err = fmt.Errorf("invalid value for %s: %w", envName, err)
	}
	return
}
