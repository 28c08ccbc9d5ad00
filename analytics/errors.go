/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import "errors"

var (
	// ErrUnsupportedSchemaVersion is returned for state documents written by
	// a newer release.
	ErrUnsupportedSchemaVersion = errors.New("unsupported state schema version")
	// ErrInvalidState is returned when a state document cannot be decoded.
	ErrInvalidState = errors.New("invalid state document")
)
