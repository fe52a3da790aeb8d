/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvVarTypes(t *testing.T) {
	t.Setenv(`DNSGEN_TEST_STR`, `foo.log`)
	t.Setenv(`DNSGEN_TEST_BOOL`, `yes`)
	t.Setenv(`DNSGEN_TEST_UINT`, `0x10`)
	t.Setenv(`DNSGEN_TEST_INT`, `-3`)
	t.Setenv(`DNSGEN_TEST_DUR`, `3s`)
	t.Setenv(`DNSGEN_TEST_LIST`, `10.0.0.0/8, 192.168.0.0/16,`)

	var s string
	var b bool
	var u uint64
	var i int64
	var d time.Duration
	var l []string
	require.NoError(t, LoadEnvVar(&s, `DNSGEN_TEST_STR`))
	require.NoError(t, LoadEnvVar(&b, `DNSGEN_TEST_BOOL`))
	require.NoError(t, LoadEnvVar(&u, `DNSGEN_TEST_UINT`))
	require.NoError(t, LoadEnvVar(&i, `DNSGEN_TEST_INT`))
	require.NoError(t, LoadEnvVar(&d, `DNSGEN_TEST_DUR`))
	require.NoError(t, LoadEnvVar(&l, `DNSGEN_TEST_LIST`))

	require.Equal(t, `foo.log`, s)
	require.True(t, b)
	require.Equal(t, uint64(16), u)
	require.Equal(t, int64(-3), i)
	require.Equal(t, 3*time.Second, d)
	require.Equal(t, []string{`10.0.0.0/8`, `192.168.0.0/16`}, l)
}

func TestLoadEnvVarUnsetKeepsValue(t *testing.T) {
	s := `from-config`
	require.NoError(t, LoadEnvVar(&s, `DNSGEN_TEST_NOT_SET_ANYWHERE`))
	require.Equal(t, `from-config`, s)
}

func TestLoadEnvVarFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), `secret`)
	require.NoError(t, os.WriteFile(p, []byte("/var/log/dns.log\nignored\n"), 0600))
	t.Setenv(`DNSGEN_TEST_PATH_FILE`, p)
	var s string
	require.NoError(t, LoadEnvVar(&s, `DNSGEN_TEST_PATH`))
	require.Equal(t, `/var/log/dns.log`, s)

	empty := filepath.Join(t.TempDir(), `empty`)
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	t.Setenv(`DNSGEN_TEST_EMPTY_FILE`, empty)
	require.ErrorIs(t, LoadEnvVar(&s, `DNSGEN_TEST_EMPTY`), ErrEmptyEnvFile)
}

func TestLoadEnvVarBadValue(t *testing.T) {
	t.Setenv(`DNSGEN_TEST_BADBOOL`, `maybe`)
	var b bool
	require.Error(t, LoadEnvVar(&b, `DNSGEN_TEST_BADBOOL`))
	var f struct{}
	t.Setenv(`DNSGEN_TEST_STRUCT`, `x`)
	require.ErrorIs(t, LoadEnvVar(&f, `DNSGEN_TEST_STRUCT`), ErrInvalidArg)
}

func TestLoadDotEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), `.env`)
	require.NoError(t, os.WriteFile(p, []byte("DNSGEN_TEST_DOTENV=from-dotenv\n"), 0600))
	t.Setenv(`DNSGEN_TEST_DOTENV`, ``)
	os.Unsetenv(`DNSGEN_TEST_DOTENV`)
	require.NoError(t, LoadDotEnv(p, p+`.missing`))
	require.Equal(t, `from-dotenv`, os.Getenv(`DNSGEN_TEST_DOTENV`))
}
