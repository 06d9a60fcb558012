// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package buildinfo exposes compile-time metadata shared across the server.
package buildinfo

import "fmt"

// Overridden via ldflags during release builds; defaults cover local
// development builds.
var (
	// Version is the semantic version or git describe output of the binary.
	Version = "dev"

	// Commit is the git commit SHA baked into the binary.
	Commit = "none"

	// BuildDate records when the binary was built in UTC.
	BuildDate = "unknown"
)

// String renders the one-line banner printed at startup and returned by
// the version endpoint.
func String() string {
	return fmt.Sprintf("contextgate Version: %s, Commit: %s, BuiltAt: %s", Version, Commit, BuildDate)
}
