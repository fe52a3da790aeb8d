/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package log

import (
	"github.com/crewjam/rfc5424"
)

// KVLogger attaches a fixed set of structured parameters to every line
type KVLogger struct {
	*Logger
	sds []rfc5424.SDParam
}

func NewLoggerWithKV(l *Logger, sds ...rfc5424.SDParam) *KVLogger {
	return &KVLogger{
		Logger: l,
		sds:    sds,
	}
}

func (kvl *KVLogger) Debug(msg string, sds ...rfc5424.SDParam) error {
	return kvl.outputStructured(DEFAULT_DEPTH, DEBUG, msg, kvl.merge(sds)...)
}

func (kvl *KVLogger) Info(msg string, sds ...rfc5424.SDParam) error {
	return kvl.outputStructured(DEFAULT_DEPTH, INFO, msg, kvl.merge(sds)...)
}

func (kvl *KVLogger) Warn(msg string, sds ...rfc5424.SDParam) error {
	return kvl.outputStructured(DEFAULT_DEPTH, WARN, msg, kvl.merge(sds)...)
}

func (kvl *KVLogger) Error(msg string, sds ...rfc5424.SDParam) error {
	return kvl.outputStructured(DEFAULT_DEPTH, ERROR, msg, kvl.merge(sds)...)
}

func (kvl *KVLogger) Critical(msg string, sds ...rfc5424.SDParam) error {
	return kvl.outputStructured(DEFAULT_DEPTH, CRITICAL, msg, kvl.merge(sds)...)
}

// merge never appends into kvl.sds directly, a shared backing array would leak
// per-call params into later lines
func (kvl *KVLogger) merge(sds []rfc5424.SDParam) []rfc5424.SDParam {
	r := make([]rfc5424.SDParam, 0, len(kvl.sds)+len(sds))
	r = append(r, kvl.sds...)
	return append(r, sds...)
}
