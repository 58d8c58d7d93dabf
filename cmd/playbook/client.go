// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

// statusClient is the HTTP client used by commands that talk to a running
// server. Overridden in tests.
var statusClient = &http.Client{
	Timeout: 5 * time.Second,
}

// apiClient provides HTTP access to a running playbook server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

// newAPIClient creates a client targeting the given host:port address.
func newAPIClient(addr string) *apiClient {
	return &apiClient{
		baseURL: "http://" + addr,
		http:    statusClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
// Returns CodeCLIServerDown when the connection is refused.
func (c *apiClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return pberr.Wrapf(err, pberr.CodeCLIServerDown, "server at %s is not running", c.baseURL)
		}
		return pberr.Wrapf(err, pberr.CodeCLISetupFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return pberr.Errorf(pberr.CodeCLISetupFailure, "server returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pberr.Wrapf(err, pberr.CodeCLISetupFailure, "invalid response")
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
