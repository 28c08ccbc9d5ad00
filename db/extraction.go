/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/humaidq/trtlog/analytics"
)

// Extraction request limits.
const (
	extractionTimeout        = 120 * time.Second
	extractionReviewBelow    = 0.7
	extractionErrorBodyLimit = 512
)

// ExtractionConfig holds the PDF extraction service configuration.
type ExtractionConfig struct {
	URL string
}

// GetExtractionConfig loads the extraction endpoint from EXTRACTION_URL.
func GetExtractionConfig() (*ExtractionConfig, error) {
	url := os.Getenv("EXTRACTION_URL")
	if url == "" {
		return nil, ErrExtractionNotEnabled
	}

	return &ExtractionConfig{URL: url}, nil
}

// ExtractionRow is one candidate marker row from a PDF.
type ExtractionRow struct {
	Label      string   `json:"label"`
	Value      float64  `json:"value"`
	Unit       string   `json:"unit"`
	RefMin     *float64 `json:"refMin"`
	RefMax     *float64 `json:"refMax"`
	Confidence *float64 `json:"confidence"`
}

// ExtractionDraft is the extraction service's answer for one PDF.
type ExtractionDraft struct {
	TestDate    string          `json:"testDate"`
	Provider    string          `json:"provider"`
	Confidence  float64         `json:"confidence"`
	NeedsReview bool            `json:"needsReview"`
	Markers     []ExtractionRow `json:"markers"`
}

// ParsedTestDate returns the draft's test date if it could be read.
func (d ExtractionDraft) ParsedTestDate() (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "02-01-2006", "02/01/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(d.TestDate)); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ReportInput turns the draft into a report ready for CreateReport. A
// missing test date falls back to fallbackDate and flags the report for
// review, as does low overall or per-row confidence.
func (d ExtractionDraft) ReportInput(fileName string, fallbackDate time.Time) CreateReportInput {
	needsReview := d.NeedsReview || d.Confidence < extractionReviewBelow

	testDate, ok := d.ParsedTestDate()
	if !ok {
		testDate = fallbackDate
		needsReview = true
	}

	markers := make([]MarkerInput, 0, len(d.Markers))
	for _, row := range d.Markers {
		confidence := d.Confidence
		if row.Confidence != nil {
			confidence = *row.Confidence
		}

		if confidence < extractionReviewBelow {
			needsReview = true
		}

		markers = append(markers, MarkerInput{
			Label:      row.Label,
			Value:      row.Value,
			Unit:       row.Unit,
			RefMin:     row.RefMin,
			RefMax:     row.RefMax,
			Confidence: clampUnit(confidence),
		})
	}

	return CreateReportInput{
		SourceFileName: fileName,
		TestDate:       testDate,
		Extraction: analytics.ExtractionMeta{
			Provider:    d.Provider,
			Confidence:  clampUnit(d.Confidence),
			NeedsReview: needsReview,
		},
		Markers: markers,
	}
}

// ExtractPDF uploads a PDF to the extraction service and decodes its draft.
// There are no retries; the caller surfaces failures to the user.
func ExtractPDF(ctx context.Context, fileName string, pdf io.Reader) (*ExtractionDraft, error) {
	config, err := GetExtractionConfig()
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart field: %w", err)
	}

	if _, err := io.Copy(part, pdf); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: extractionTimeout}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call extraction service: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close extraction response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, extractionErrorBodyLimit))
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var draft ExtractionDraft
	if err := json.NewDecoder(resp.Body).Decode(&draft); err != nil {
		return nil, fmt.Errorf("failed to decode extraction draft: %w", err)
	}

	if len(draft.Markers) == 0 {
		return nil, ErrExtractionEmpty
	}

	logger.Info("Extracted lab report", "file", fileName, "provider", draft.Provider,
		"markers", len(draft.Markers), "confidence", draft.Confidence)

	return &draft, nil
}
