/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package templates embeds the page templates. Every page includes the
// "head" and "foot" partials.
package templates

import "embed"

//go:embed *.html
var Templates embed.FS
