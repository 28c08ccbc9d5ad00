/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import "errors"

var (
	errMissingDate       = errors.New("missing date")
	errInvalidDate       = errors.New("invalid date")
	errYearOutOfRange    = errors.New("year out of range")
	errInvalidNumber     = errors.New("invalid number")
	errInvalidID         = errors.New("invalid id")
	errNotPDF            = errors.New("file is not a PDF")
	errNoMarkerRows      = errors.New("at least one marker row is required")
	errMismatchedMarkers = errors.New("marker rows are incomplete")
)
