/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/trtlog/analytics"
	"github.com/humaidq/trtlog/db"
)

// SettingsForm renders the settings page.
func SettingsForm(c flamego.Context, t template.Template, data template.Data) {
	settings, err := getSettingsDBFn(c.Request().Context())
	if err != nil {
		logger.Error("Error loading settings", "error", err)
		data["Error"] = "Failed to load settings"
		settings = analytics.DefaultSettings()
	}

	data["IsSettings"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		homeBreadcrumb(),
		{Name: "Settings", IsCurrent: true},
	}
	data["Settings"] = settings
	data["UnitSystems"] = []analytics.UnitSystem{analytics.UnitSystemEU, analytics.UnitSystemUS}

	t.HTML(http.StatusOK, "settings")
}

// UpdateSettings stores the settings form.
func UpdateSettings(c flamego.Context, s session.Session) {
	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Error parsing form", "error", err)
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/settings", http.StatusSeeOther)

		return
	}

	form := c.Request().Form

	input, err := parseSettingsForm(form.Get("unit_system"), form.Get("protocol_window_size"),
		form.Get("stability_window_months"), form.Get("sex"), form.Get("date_of_birth"))
	if err != nil {
		SetErrorFlash(s, inputErrorMessage("Invalid settings", err))
		c.Redirect("/settings", http.StatusSeeOther)

		return
	}

	if err := updateSettingsDBFn(c.Request().Context(), input); err != nil {
		logger.Error("Error updating settings", "error", err)
		SetErrorFlash(s, inputErrorMessage("Failed to save settings", err))
		c.Redirect("/settings", http.StatusSeeOther)

		return
	}

	SetSuccessFlash(s, "Settings saved")
	c.Redirect("/settings", http.StatusSeeOther)
}

func parseSettingsForm(unitSystem, window, stability, sex, dob string) (db.SettingsInput, error) {
	input := db.SettingsInput{
		UnitSystem: strings.ToUpper(strings.TrimSpace(unitSystem)),
		Sex:        strings.TrimSpace(sex),
	}

	var err error

	if input.ProtocolWindowSize, err = parseWindow(window, analytics.ImpactDefaultWindow); err != nil {
		return db.SettingsInput{}, err
	}

	if input.StabilityWindowMonths, err = parseWindow(stability, analytics.DefaultStabilityWindowMonths); err != nil {
		return db.SettingsInput{}, err
	}

	if input.DateOfBirth, err = parseOptionalDate(dob); err != nil {
		return db.SettingsInput{}, err
	}

	return input, nil
}

// parseWindow reads a positive whole number, using fallback when blank.
func parseWindow(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidNumber, value)
	}

	return n, nil
}
