/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "github.com/humaidq/trtlog/logging"

var (
	appLogger = logging.Logger(logging.SourceApp)

	// analysisLogger reports on offline runs of the analyze command.
	analysisLogger = logging.Logger(logging.SourceAnalysis)

	// requestStdLogger receives http.Server errors.
	requestStdLogger = logging.StdLogger(logging.SourceWebRequest)
)
