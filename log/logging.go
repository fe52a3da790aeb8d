/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package log is the leveled RFC5424 logger used by the generators for their
// own diagnostics. It never touches the generated output.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	OFF      Level = 0
	DEBUG    Level = 1
	INFO     Level = 2
	WARN     Level = 3
	ERROR    Level = 4
	CRITICAL Level = 5
	FATAL    Level = 6
)

const (
	DEFAULT_DEPTH = 3

	DefaultID = `gw@1`

	maxAppname  = 48
	maxHostname = 255
	maxMsgID    = 32

	defaultMaxSizeMB  = 4
	defaultMaxBackups = 3
)

var (
	ErrNotOpen      = errors.New("Logger is not open")
	ErrInvalidLevel = errors.New("Log level is invalid")
)

type Level int

type Logger struct {
	wtrs     []io.WriteCloser
	mtx      sync.Mutex
	lvl      Level
	hot      bool
	raw      bool //output the plain form rather than RFC5424
	hostname string
	appname  string
}

// New creates a new logger with the given writer at log level INFO
func New(wtr io.WriteCloser) (l *Logger) {
	l = &Logger{
		wtrs: []io.WriteCloser{wtr},
		lvl:  INFO,
		hot:  true,
	}
	l.guessHostnameAppname()
	return
}

// NewFile creates a logger whose first writer is a size rotated file.
// The file is opened in append mode, rotated segments are gzipped.
func NewFile(pth string) (*Logger, error) {
	if pth == `` {
		return nil, errors.New("empty log file path")
	}
	if err := os.MkdirAll(filepath.Dir(pth), 0750); err != nil {
		return nil, err
	}
	return New(&lumberjack.Logger{
		Filename:   pth,
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		Compress:   true,
	}), nil
}

// NewStderrLogger returns a logger writing to stderr.
func NewStderrLogger() *Logger {
	return New(nopCloser{os.Stderr})
}

func NewDiscardLogger() *Logger {
	return New(nopCloser{io.Discard})
}

func (l *Logger) guessHostnameAppname() {
	if h, err := os.Hostname(); err == nil {
		l.hostname = trimLength(maxHostname, h)
	}
	if len(os.Args) > 0 {
		exe := filepath.Base(os.Args[0])
		if ext := filepath.Ext(exe); len(ext) > 0 && len(ext) < len(exe) {
			exe = strings.TrimSuffix(exe, ext)
		}
		l.appname = trimLength(maxAppname, exe)
	}
}

// SetAppname overrides the application name placed in the RFC5424 header.
func (l *Logger) SetAppname(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	l.mtx.Lock()
	l.appname = trimLength(maxAppname, name)
	l.mtx.Unlock()
	return nil
}

// Close closes the logger and all currently associated writers
func (l *Logger) Close() (err error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if err = l.ready(); err != nil {
		return
	}
	l.hot = false
	for i := range l.wtrs {
		if lerr := l.wtrs[i].Close(); lerr != nil {
			err = lerr
		}
	}
	return
}

func (l *Logger) EnableRawMode() {
	l.mtx.Lock()
	l.raw = true
	l.mtx.Unlock()
}

func (l *Logger) ready() error {
	if !l.hot || len(l.wtrs) == 0 {
		return ErrNotOpen
	}
	return nil
}

// SetLevelString sets the log level using a string, so config values can be handed straight in
func (l *Logger) SetLevelString(s string) error {
	lvl, err := LevelFromString(s)
	if err != nil {
		return err
	}
	return l.SetLevel(lvl)
}

// SetLevel sets the log level, any logging call below the current level is dropped
func (l *Logger) SetLevel(lvl Level) error {
	if !lvl.Valid() {
		return ErrInvalidLevel
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if err := l.ready(); err != nil {
		return err
	}
	l.lvl = lvl
	return nil
}

func (l *Logger) Infof(f string, args ...interface{}) error {
	return l.outputf(DEFAULT_DEPTH, INFO, f, args...)
}

func (l *Logger) Warnf(f string, args ...interface{}) error {
	return l.outputf(DEFAULT_DEPTH, WARN, f, args...)
}

func (l *Logger) Criticalf(f string, args ...interface{}) error {
	return l.outputf(DEFAULT_DEPTH, CRITICAL, f, args...)
}

// Info writes a structured INFO level log
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam) error {
	return l.outputStructured(DEFAULT_DEPTH, INFO, msg, sds...)
}

// FatalCode writes a structured FATAL log, closes the logger and exits with code
func (l *Logger) FatalCode(code int, msg string, sds ...rfc5424.SDParam) {
	l.outputStructured(DEFAULT_DEPTH, FATAL, msg, sds...)
	l.Close()
	os.Exit(code)
}

func (l *Logger) enabled(lvl Level) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.lvl != OFF && lvl >= l.lvl
}

func (l *Logger) outputf(depth int, lvl Level, f string, args ...interface{}) error {
	if !l.enabled(lvl) {
		return nil
	}
	return l.output(time.Now(), CallLoc(depth), lvl, fmt.Sprintf(f, args...))
}

func (l *Logger) outputStructured(depth int, lvl Level, msg string, sds ...rfc5424.SDParam) error {
	if !l.enabled(lvl) {
		return nil
	}
	return l.output(time.Now(), CallLoc(depth), lvl, msg, sds...)
}

func (l *Logger) output(ts time.Time, loc string, lvl Level, msg string, sds ...rfc5424.SDParam) (err error) {
	msg = strings.TrimRight(msg, "\n\t\r")
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if err = l.ready(); err != nil {
		return
	}
	var ln string
	if l.raw {
		ln = genRawOutput(ts, loc, lvl, msg, sds...)
	} else {
		var b []byte
		if b, err = GenRFCMessage(ts, lvl.priority(), l.hostname, l.appname, loc, msg, sds...); err != nil {
			return
		}
		ln = string(b)
	}
	for _, w := range l.wtrs {
		if _, lerr := io.WriteString(w, ln+"\n"); lerr != nil {
			err = lerr
		}
	}
	return
}

// GenRFCMessage builds an RFC5424 line, trimming fields to the RFC maximums
func GenRFCMessage(ts time.Time, prio rfc5424.Priority, hostname, appname, msgid, msg string, sds ...rfc5424.SDParam) ([]byte, error) {
	m := rfc5424.Message{
		Priority:  prio,
		Timestamp: ts,
		Hostname:  trimLength(maxHostname, hostname),
		AppName:   trimLength(maxAppname, appname),
		MessageID: trimPathLength(maxMsgID, msgid),
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{
			{
				ID:         DefaultID,
				Parameters: sds,
			},
		}
	}
	return m.MarshalBinary()
}

func genRawOutput(ts time.Time, loc string, lvl Level, msg string, sds ...rfc5424.SDParam) string {
	var sb strings.Builder
	sb.WriteString(ts.UTC().Format(time.RFC3339))
	sb.WriteString(" " + loc + " " + lvl.String() + " " + msg)
	for _, sd := range sds {
		fmt.Fprintf(&sb, " %s=%q", sd.Name, sd.Value)
	}
	return sb.String()
}

func (l Level) String() string {
	switch l {
	case OFF:
		return `OFF`
	case DEBUG:
		return `DEBUG`
	case INFO:
		return `INFO`
	case WARN:
		return `WARN`
	case ERROR:
		return `ERROR`
	case CRITICAL:
		return `CRITICAL`
	case FATAL:
		return `FATAL`
	}
	return `UNKNOWN`
}

func (l Level) Valid() bool {
	return l >= OFF && l <= FATAL
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	case CRITICAL:
		return rfc5424.User | rfc5424.Crit
	case FATAL:
		return rfc5424.User | rfc5424.Emergency
	}
	return rfc5424.User | rfc5424.Debug
}

func LevelFromString(s string) (l Level, err error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case `OFF`:
		l = OFF
	case `DEBUG`:
		l = DEBUG
	case `INFO`:
		l = INFO
	case `WARN`:
		l = WARN
	case `ERROR`:
		l = ERROR
	case `CRITICAL`:
		l = CRITICAL
	case `FATAL`:
		l = FATAL
	default:
		err = ErrInvalidLevel
	}
	return
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}

// CallLoc returns the file:line of the caller callDepth frames up
func CallLoc(callDepth int) (s string) {
	if _, file, line, ok := runtime.Caller(callDepth); ok {
		dir, file := filepath.Split(file)
		file = filepath.Join(filepath.Base(dir), file)
		s = fmt.Sprintf("%s:%d", file, line)
	}
	return
}

func checkName(v string) (err error) {
	for _, r := range v {
		//must be a-z or A-Z, or . _, -
		if r >= 'a' && r <= 'z' {
			continue
		} else if r >= 'A' && r <= 'Z' {
			continue
		} else if r == '.' || r == '_' || r == '-' || r == ':' {
			continue
		}
		err = fmt.Errorf("name character %c is invalid", r)
		return
	}
	return
}

// trimPathLength trims to no more than i bytes of the basename,
// "dnsLogGenerator/main.go:352" becomes "main.go:352"
func trimPathLength(i int, input string) string {
	if len(input) <= i {
		return input
	}
	return trimLength(i, filepath.Base(input))
}

func trimLength(i int, input string) string {
	if len(input) <= i {
		return input
	}
	return input[:i]
}
