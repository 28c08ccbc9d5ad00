/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"github.com/humaidq/trtlog/db"
)

// Storage and collaborator calls, replaceable in tests.
var (
	listReportsDBFn      = db.ListReports
	getReportDBFn        = db.GetReport
	createReportDBFn     = db.CreateReport
	updateReportDBFn     = db.UpdateReportDetails
	updateMarkerDBFn     = db.UpdateMarker
	deleteMarkerDBFn     = db.DeleteMarker
	deleteReportDBFn     = db.DeleteReport
	getSettingsDBFn      = db.GetSettings
	updateSettingsDBFn   = db.UpdateSettings
	listMarkerNamesDBFn  = db.ListMarkerNames
	renameMarkerDBFn     = db.RenameMarker
	listMarkerMergesDBFn = db.ListMarkerMerges
	referenceRangeDBFn   = db.ConvertedReferenceRange
	exportStateDBFn      = db.ExportState
	importStateDBFn      = db.ImportState
	extractPDFFn         = db.ExtractPDF
	streamTRTAnalysisFn  = db.StreamTRTAnalysis
	extractionEnabledFn  = extractionEnabled
	aiEnabledFn          = db.AIEnabled
)

func extractionEnabled() bool {
	_, err := db.GetExtractionConfig()
	return err == nil
}
