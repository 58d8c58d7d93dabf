// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"fmt"
	"os"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode returns 2 for configuration and input errors the user can fix,
// and 1 for everything else.
func exitCode(err error) int {
	if pberr.IsInvalidInput(err) {
		return 2
	}
	return 1
}
