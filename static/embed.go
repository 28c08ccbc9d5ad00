/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package static holds the stylesheet and the small script behind the
// add-row, confirm and AI streaming controls.
package static

import "embed"

//go:embed *.css *.js
var Static embed.FS
