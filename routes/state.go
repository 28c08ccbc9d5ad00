/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/trtlog/analytics"
)

// maxStateSize bounds imported state documents.
const maxStateSize = 32 << 20

// ExportState downloads every report and setting as a JSON document.
func ExportState(c flamego.Context, s session.Session) {
	state, err := exportStateDBFn(c.Request().Context())
	if err != nil {
		logger.Error("Error exporting state", "error", err)
		SetErrorFlash(s, "Failed to export data")
		c.Redirect("/import", http.StatusSeeOther)

		return
	}

	var buf bytes.Buffer
	if err := analytics.EncodeState(&buf, state); err != nil {
		logger.Error("Error encoding state", "error", err)
		SetErrorFlash(s, "Failed to export data")
		c.Redirect("/import", http.StatusSeeOther)

		return
	}

	fileName := fmt.Sprintf("trtlog-%s.json", time.Now().Format(dateLayout))

	w := c.ResponseWriter()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warn("Failed to write export", "error", err)
	}
}

// ImportForm renders the import and export page.
func ImportForm(t template.Template, data template.Data) {
	data["IsImport"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		homeBreadcrumb(),
		{Name: "Import / Export", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "import")
}

// ImportState replaces all stored data with an uploaded state document.
func ImportState(c flamego.Context, s session.Session) {
	r := c.Request().Request
	r.Body = http.MaxBytesReader(c.ResponseWriter(), r.Body, maxStateSize)

	if err := r.ParseMultipartForm(maxStateSize); err != nil {
		logger.Error("Error parsing upload", "error", err)
		SetErrorFlash(s, "Failed to read upload")
		c.Redirect("/import", http.StatusSeeOther)

		return
	}

	if r.Form.Get("confirm") != "on" {
		SetErrorFlash(s, "Importing replaces all existing data; please confirm")
		c.Redirect("/import", http.StatusSeeOther)

		return
	}

	file, _, err := r.FormFile("state")
	if err != nil {
		SetErrorFlash(s, "Please choose an export file")
		c.Redirect("/import", http.StatusSeeOther)

		return
	}

	defer func() {
		if err := file.Close(); err != nil {
			logger.Warn("Failed to close upload", "error", err)
		}
	}()

	state, err := analytics.DecodeState(file)
	if err != nil {
		logger.Warn("Rejected state document", "error", err)

		if errors.Is(err, analytics.ErrUnsupportedSchemaVersion) {
			SetErrorFlash(s, "This file was written by a newer version and cannot be imported")
		} else {
			SetErrorFlash(s, "The file is not a valid export")
		}

		c.Redirect("/import", http.StatusSeeOther)

		return
	}

	count, err := importStateDBFn(c.Request().Context(), state)
	if err != nil {
		logger.Error("Error importing state", "error", err)
		SetErrorFlash(s, "Failed to import data")
		c.Redirect("/import", http.StatusSeeOther)

		return
	}

	logger.Info("Imported state", "reports", count)

	if count == 0 {
		SetInfoFlash(s, "Settings imported; the file contained no reports")
	} else {
		SetSuccessFlash(s, fmt.Sprintf("Imported %d reports", count))
	}

	c.Redirect("/", http.StatusSeeOther)
}
