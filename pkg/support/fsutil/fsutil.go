// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fsutil contains utilities for working with the file system.
package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileExists returns whether the file or directory exists or an error if something went wrong in the filesystem.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to FileExists(%q)", path)
}

// ReplaceTilde replaces a leading "~" or "~user" in path by the user's home directory.
// Returns path unchanged if it doesn't start with "~".
//
// It returns an error if `path` has an unknown user (e.g: `~unknown/...`).
func ReplaceTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	var userName string
	if path != "~" && !strings.HasPrefix(path, "~/") {
		sepIdx := strings.IndexRune(path, '/')
		if sepIdx == -1 {
			userName = path[1:]
		} else {
			userName = path[1:sepIdx]
		}
	}
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to lookup home directory for user in path %q", path)
	}
	return filepath.Join(usr.HomeDir, path[1+len(userName):]), nil
}

// Ext returns the lower-cased extension of path, without the dot. E.g.: "a/b.NPY" -> "npy".
func Ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
