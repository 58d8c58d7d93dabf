// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package sqlite

import "time"

// SetNowFunc replaces the store clock.
func (s *PlayStore) SetNowFunc(f func() time.Time) {
	s.nowFunc = f
}
