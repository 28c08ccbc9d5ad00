/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/humaidq/trtlog/analytics"
)

// aiPromptReports caps how many recent reports are listed in the prompt.
const aiPromptReports = 8

const aiSystemPrompt = "You are a helpful assistant reviewing lab results of a person on testosterone replacement therapy. " +
	"Be concise and clear. Comment on trends, stability and how markers respond to dose changes. " +
	"Highlight abnormal values and their potential significance without being alarmist. " +
	"Never tell the user to consult a healthcare professional, this is shown separately in the UI. " +
	"Use basic markdown (italic, bold, lists), but don't use headings in your response."

// AIConfig holds the OpenAI-compatible chat server configuration.
type AIConfig struct {
	URL   string
	Model string
}

// OpenAI-compatible request/response structures
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
	Delta   chatMessage `json:"delta,omitempty"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GetAIConfig loads AI configuration from AI_URL and AI_MODEL.
func GetAIConfig() (*AIConfig, error) {
	url := os.Getenv("AI_URL")
	model := os.Getenv("AI_MODEL")

	if url == "" || model == "" {
		return nil, ErrAIConfigIncomplete
	}

	return &AIConfig{
		URL:   url,
		Model: model,
	}, nil
}

// AIEnabled reports whether AI analysis is configured.
func AIEnabled() bool {
	_, err := GetAIConfig()
	return err == nil
}

func formatRange(refMin, refMax *float64) string {
	switch {
	case refMin != nil && refMax != nil:
		return fmt.Sprintf(" (Reference: %.2f - %.2f)", *refMin, *refMax)
	case refMin != nil:
		return fmt.Sprintf(" (Reference: > %.2f)", *refMin)
	case refMax != nil:
		return fmt.Sprintf(" (Reference: < %.2f)", *refMax)
	}

	return ""
}

// buildTRTAnalysisPrompt describes the user's reports and derived analytics.
// Reports must already be in the settings' unit system.
func buildTRTAnalysisPrompt(settings analytics.Settings, reports []analytics.LabReport, now time.Time) string {
	var sb strings.Builder

	sorted := analytics.SortReports(analytics.WithCalculatedMarkersAll(reports))

	sb.WriteString("Please review the following TRT lab history:\n\n")

	if age := AgeAt(settings.DateOfBirth, now); age != nil {
		fmt.Fprintf(&sb, "Age: %d years\n", *age)
	}

	if settings.Sex != "" {
		fmt.Fprintf(&sb, "Sex: %s\n", settings.Sex)
	}

	fmt.Fprintf(&sb, "Unit system: %s\n", settings.UnitSystem)
	fmt.Fprintf(&sb, "Reports on record: %d\n", len(sorted))

	recent := sorted
	if len(recent) > aiPromptReports {
		recent = recent[len(recent)-aiPromptReports:]
	}

	sb.WriteString("\n---\n\nRecent reports:\n")

	for _, report := range recent {
		fmt.Fprintf(&sb, "\n%s", report.TestDate.Format("January 2, 2006"))

		if dose, ok := report.Dose(); ok {
			fmt.Fprintf(&sb, ", dose %.0f mg/week", dose)
		}

		if report.Annotations.Protocol != "" {
			fmt.Fprintf(&sb, ", protocol: %s", report.Annotations.Protocol)
		}

		fmt.Fprintf(&sb, ", sampling: %s\n", report.Annotations.SamplingTiming)

		for _, mv := range report.Markers {
			converted := analytics.ConvertBySystem(mv.CanonicalName, mv.Value, mv.Unit, settings.UnitSystem)

			status := ""
			switch mv.Abnormal() {
			case analytics.FlagHigh:
				status = " [HIGH]"
			case analytics.FlagLow:
				status = " [LOW]"
			}

			calculated := ""
			if mv.IsCalculated {
				calculated = " (calculated)"
			}

			fmt.Fprintf(&sb, "- %s%s: %.3f %s%s%s\n", mv.CanonicalName, calculated, converted.Value,
				converted.Unit, formatRange(mv.RefMin, mv.RefMax), status)
		}

		if report.Annotations.Symptoms != "" {
			fmt.Fprintf(&sb, "Symptoms: %s\n", report.Annotations.Symptoms)
		}
	}

	window := analytics.WindowReports(sorted, now.AddDate(0, -settings.StabilityWindowMonths, 0))
	stability := analytics.ComputeTRTStabilityIndex(window, settings.UnitSystem)

	sb.WriteString("\n---\n\n")

	if stability.Score != nil {
		fmt.Fprintf(&sb, "Stability index (last %d months): %.0f/100 (%s)\n",
			settings.StabilityWindowMonths, *stability.Score, stability.Label)
	} else {
		sb.WriteString("Stability index: not enough data\n")
	}

	sb.WriteString("\nTrends:\n")

	for _, marker := range analytics.StabilityCoreMarkers {
		series := analytics.BuildMarkerSeries(sorted, marker, settings.UnitSystem)

		trend := analytics.ClassifyMarkerTrend(series, marker)
		if trend.Direction == analytics.TrendInsufficient {
			continue
		}

		fmt.Fprintf(&sb, "- %s: %s (%s)\n", marker, trend.Direction, trend.Explanation)
	}

	sb.WriteString("\nDose response:\n")

	for _, pred := range analytics.EstimateDoseResponse(sorted, nil, settings.UnitSystem) {
		if pred.Fit == nil {
			fmt.Fprintf(&sb, "- %s: insufficient personal data\n", pred.Marker)
			continue
		}

		fmt.Fprintf(&sb, "- %s: %+.3f %s per mg/week (R² %.2f, %s confidence)\n",
			pred.Marker, pred.Fit.Slope, pred.Unit, pred.Fit.RSquared, pred.Confidence)
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString("Please provide:\n")
	sb.WriteString("1. A brief overview of the current state\n")
	sb.WriteString("2. Any values or trends that are concerning and why\n")
	sb.WriteString("3. Observations about how the markers respond to the dose\n")

	return sb.String()
}

// StreamTRTAnalysis asks the configured model to review the reports. The
// onChunk callback is called for each chunk of text received.
func StreamTRTAnalysis(ctx context.Context, settings analytics.Settings, reports []analytics.LabReport, onChunk func(string) error) error {
	config, err := GetAIConfig()
	if err != nil {
		return err
	}

	prompt := buildTRTAnalysisPrompt(settings.Normalized(), reports, time.Now())

	return streamChatCompletion(ctx, config, []chatMessage{
		{Role: "system", Content: aiSystemPrompt},
		{Role: "user", Content: prompt},
	}, onChunk)
}

func streamChatCompletion(ctx context.Context, config *AIConfig, messages []chatMessage, onChunk func(string) error) error {
	jsonBody, err := json.Marshal(chatRequest{
		Model:    config.Model,
		Stream:   true,
		Messages: messages,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(config.URL, "/") + "/v1/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 300 * time.Second, // 5 minutes for streaming
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call AI server: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close AI response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("AI server returned status %d: %s", resp.StatusCode, string(body))
	}

	reader := bufio.NewReader(resp.Body)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read stream: %w", err)
		}

		lineStr := strings.TrimSpace(string(line))

		// SSE format: "data: {...}"
		if data, ok := strings.CutPrefix(lineStr, "data: "); ok {
			if data == "[DONE]" {
				return nil
			}

			var chatResp chatResponse
			if jsonErr := json.Unmarshal([]byte(data), &chatResp); jsonErr == nil {
				if chatResp.Error != nil {
					return fmt.Errorf("AI server error: %s", chatResp.Error.Message)
				}

				if len(chatResp.Choices) > 0 && chatResp.Choices[0].Delta.Content != "" {
					if cbErr := onChunk(chatResp.Choices[0].Delta.Content); cbErr != nil {
						return cbErr
					}
				}
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}
