// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	home := must.M1(user.Current()).HomeDir
	assert.Equal(t, "/tmp/x", must.M1(ExpandHome("/tmp/x")))
	assert.Equal(t, "rel/x", must.M1(ExpandHome("rel/x")))
	assert.Equal(t, home, must.M1(ExpandHome("~")))
	assert.Equal(t, filepath.Join(home, "a/b"), must.M1(ExpandHome("~/a/b")))
	_, err := ExpandHome("~user_that_does_not_exist_42/a")
	assert.Error(t, err)
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph: {}"), 0o644))

	assert.Equal(t, path, must.M1(ResolveFile(path)))
	assert.True(t, must.M1(FileExists(dir)))

	_, err := ResolveFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
