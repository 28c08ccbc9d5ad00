/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import "errors"

var (
	// ErrDatabaseConnectionNotInitialized is returned before Init succeeds.
	ErrDatabaseConnectionNotInitialized = errors.New("database connection not initialized")
	// ErrDatabaseURLEnvVarNotSet is returned when DATABASE_URL is empty.
	ErrDatabaseURLEnvVarNotSet = errors.New("DATABASE_URL environment variable is not set")
	// ErrDatabaseNameNotSpecified is returned when DATABASE_URL names no database.
	ErrDatabaseNameNotSpecified = errors.New("database name not specified in DATABASE_URL")

	ErrReportNotFound       = errors.New("lab report not found")
	ErrMarkerNotFound       = errors.New("marker value not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrSameMarkerName       = errors.New("source and target marker names are the same")
	ErrAIConfigIncomplete   = errors.New("AI configuration incomplete: AI_URL and AI_MODEL must be set")
	ErrExtractionNotEnabled = errors.New("PDF extraction is not configured: EXTRACTION_URL must be set")
	ErrExtractionEmpty      = errors.New("extraction returned no markers")
)
