/*************************************************************************
 * Copyright 2024 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gravwell/dnsloggen/log"
)

const (
	DefaultOutputPerm os.FileMode = 0644

	appendFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY
)

var (
	ErrNoPath           = errors.New("no output path specified")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// OpenFunc opens the output file, os.OpenFile satisfies it once wrapped
type OpenFunc func(name string, flag int, perm os.FileMode) (io.WriteCloser, error)

func osOpen(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
	return os.OpenFile(name, flag, perm)
}

type FileWriterConfig struct {
	Path    string
	Perm    os.FileMode   // DefaultOutputPerm when zero
	Retry   RetryPolicy   // DefaultRetryPolicy when zero
	Console io.Writer     // retry diagnostics, os.Stdout when nil
	Logger  *log.KVLogger // optional
	Open    OpenFunc      // os.OpenFile when nil
	Timer   backoff.Timer // retry wait timer, real time when nil
}

// FileWriter appends each entry to a file, opening and closing the file on
// every write. Permission failures are retried per the retry policy; every
// other failure is returned to the caller.
type FileWriter struct {
	FileWriterConfig
	retries uint64
}

func NewFileWriter(cfg FileWriterConfig) (*FileWriter, error) {
	if cfg.Path == `` {
		return nil, ErrNoPath
	}
	if cfg.Perm == 0 {
		cfg.Perm = DefaultOutputPerm
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	} else if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if cfg.Open == nil {
		cfg.Open = osOpen
	}
	return &FileWriter{FileWriterConfig: cfg}, nil
}

// Retries returns the number of permission retries performed so far
func (fw *FileWriter) Retries() uint64 {
	return atomic.LoadUint64(&fw.retries)
}

// WriteEntry appends b to the output. A failed attempt never causes bytes
// that were already accepted to be written a second time.
func (fw *FileWriter) WriteEntry(ctx context.Context, b []byte) (err error) {
	var written, attempts int
	op := func() error {
		attempts++
		n, lerr := fw.appendOnce(b[written:])
		written += n
		if lerr == nil {
			return nil
		} else if errors.Is(lerr, fs.ErrPermission) {
			return lerr
		}
		return backoff.Permanent(lerr)
	}
	if err = backoff.RetryNotifyWithTimer(op, fw.Retry.backOff(ctx), fw.retryNotify, fw.Timer); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			err = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
		}
	} else if fw.Logger != nil {
		fw.Logger.Debug("wrote entry", log.KV("path", fw.Path),
			log.KV("bytes", len(b)), log.KV("attempts", attempts))
	}
	return
}

func (fw *FileWriter) retryNotify(err error, wait time.Duration) {
	atomic.AddUint64(&fw.retries, 1)
	fmt.Fprintf(fw.Console, "Permission denied. Retrying in %v...\n", wait)
	if fw.Logger != nil {
		fw.Logger.Warn("permission denied writing entry",
			log.KV("path", fw.Path), log.KV("retry-in", wait), log.KVErr(err))
	}
}

func (fw *FileWriter) appendOnce(b []byte) (n int, err error) {
	var f io.WriteCloser
	if f, err = fw.Open(fw.Path, appendFlags, fw.Perm); err != nil {
		return
	}
	if len(b) > 0 {
		if n, err = f.Write(b); err != nil {
			f.Close()
			return
		}
	}
	err = f.Close()
	return
}
