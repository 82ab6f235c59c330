// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fsutil contains utilities for locating files given by users: scripts passed on the
// command line or referenced from tests.
package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileExists returns whether the file exists, or an error if something went wrong in the filesystem.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to stat %q", path)
}

// ExpandHome replaces a leading "~" or "~user" by the corresponding home directory.
// Paths not starting with "~" are returned unchanged.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	userName, rest, _ := strings.Cut(path[1:], "/")
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to find the home directory for %q", path)
	}
	return filepath.Join(usr.HomeDir, rest), nil
}

// ResolveFile expands the home directory in path and checks that the file exists.
func ResolveFile(path string) (string, error) {
	resolved, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	exists, err := FileExists(resolved)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errors.Wrapf(os.ErrNotExist, "file %q", path)
	}
	return resolved, nil
}
