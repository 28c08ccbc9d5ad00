/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/humaidq/trtlog/analytics"
)

var CmdAnalyze = &cli.Command{
	Name:      "analyze",
	Usage:     "Print analyses of an exported state file",
	ArgsUsage: "<state.json>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "units",
			Usage: "unit system to report in (EU or US); defaults to the file's setting",
		},
	},
	Action: analyze,
	Commands: []*cli.Command{
		{
			Name:      "merge",
			Usage:     "Rename a marker across every report of a state file",
			ArgsUsage: "<state.json>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "from", Usage: "marker name to replace", Required: true},
				&cli.StringFlag{Name: "to", Usage: "marker name to keep", Required: true},
				&cli.StringFlag{Name: "out", Usage: "output file (defaults to stdout)"},
			},
			Action: analyzeMerge,
		},
	},
}

func readStateFile(cmd *cli.Command) (analytics.State, error) {
	path := cmd.Args().First()
	if path == "" {
		return analytics.State{}, errStateFileRequired
	}

	f, err := os.Open(path)
	if err != nil {
		return analytics.State{}, fmt.Errorf("failed to open state file: %w", err)
	}

	defer func() {
		if err := f.Close(); err != nil {
			appLogger.Warn("Failed to close state file", "error", err)
		}
	}()

	state, err := analytics.DecodeState(f)
	if err != nil {
		return analytics.State{}, err
	}

	analysisLogger.Debug("Loaded state file", "path", path, "reports", len(state.Reports))

	return state, nil
}

func analyze(_ context.Context, cmd *cli.Command) error {
	state, err := readStateFile(cmd)
	if err != nil {
		return err
	}

	if units := cmd.String("units"); units != "" {
		state.Settings.UnitSystem = analytics.ParseUnitSystem(units)
	}

	return writeAnalysis(os.Stdout, state, time.Now())
}

// writeAnalysis prints every analysis of state as plain-text tables.
func writeAnalysis(out io.Writer, state analytics.State, now time.Time) error {
	settings := state.Settings.Normalized()
	system := settings.UnitSystem
	reports := analytics.SortReports(analytics.WithCalculatedMarkersAll(state.Reports))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Reports: %d (%s units)\n\n", len(reports), system)

	stability := analytics.ComputeTRTStabilityIndex(
		analytics.WindowReports(reports, now.AddDate(0, -settings.StabilityWindowMonths, 0)), system)

	fmt.Fprintf(w, "Stability index (last %d months): ", settings.StabilityWindowMonths)

	if stability.Score != nil {
		fmt.Fprintf(w, "%.0f (%s)\n", *stability.Score, stability.Label)
	} else {
		fmt.Fprintln(w, "insufficient data")
	}

	fmt.Fprintln(w, "\nMARKER\tLATEST\tUNIT\tTREND\tPOINTS")

	for _, name := range analytics.MarkerNames(reports) {
		series := analytics.BuildMarkerSeries(reports, name, system)
		if len(series) == 0 {
			continue
		}

		latest := series[len(series)-1]
		trend := analytics.ClassifyMarkerTrend(series, name)
		fmt.Fprintf(w, "%s\t%.3g\t%s\t%s\t%d\n", name, latest.Value, latest.Unit, trend.Direction, len(series))
	}

	fmt.Fprintln(w, "\nDOSE RESPONSE\tSOURCE\tCONFIDENCE\tSLOPE PER MG\tSAMPLES")

	for _, pred := range analytics.EstimateDoseResponse(reports, nil, system) {
		slope := "-"
		if pred.Fit != nil {
			slope = fmt.Sprintf("%.4f %s", pred.Fit.Slope, pred.Unit)
		} else if pred.Prior != nil {
			slope = fmt.Sprintf("%.4f %s (literature)", pred.Prior.Slope, pred.Prior.Unit)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", pred.Marker, pred.Source, pred.Confidence, slope, pred.SampleCount)
	}

	for _, event := range analytics.BuildProtocolImpactDoseEvents(reports, system, settings.ProtocolWindowSize) {
		fmt.Fprintf(w, "\nDose change %.0f -> %.0f mg/week on %s\n", event.FromDose, event.ToDose, event.ChangeDate.Format("2006-01-02"))
		fmt.Fprintln(w, "MARKER\tBEFORE\tAFTER\tCHANGE %\tTREND\tCONFIDENCE")

		for _, row := range event.Rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", row.Marker, optional(row.BeforeAvg), optional(row.AfterAvg),
				optional(row.PercentDelta), row.Trend, row.Confidence)
		}
	}

	if suggestions := mergeSuggestionsFor(reports); len(suggestions) > 0 {
		fmt.Fprintln(w, "\nPOSSIBLE DUPLICATE\tOF\tSCORE")

		for _, sg := range suggestions {
			fmt.Fprintf(w, "%s\t%s\t%.2f\n", sg.Source, sg.Target, sg.Score)
		}
	}

	return w.Flush()
}

// mergeSuggestionsFor matches names without a known definition against
// the known ones.
func mergeSuggestionsFor(reports []analytics.LabReport) []analytics.MarkerMergeSuggestion {
	var unknown, known []string

	for _, name := range analytics.MarkerNames(reports) {
		if _, ok := analytics.LookupMarker(name); ok {
			known = append(known, name)
		} else {
			unknown = append(unknown, name)
		}
	}

	return analytics.DetectMarkerMergeSuggestions(unknown, known)
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}

	return fmt.Sprintf("%.3g", *v)
}

func analyzeMerge(_ context.Context, cmd *cli.Command) error {
	from, to := cmd.String("from"), cmd.String("to")
	if from == "" || to == "" {
		return errMarkerNamesRequired
	}

	state, err := readStateFile(cmd)
	if err != nil {
		return err
	}

	var changed int

	state.Reports, changed = analytics.RenameMarker(state.Reports, from, to)

	if path := cmd.String("out"); path != "" {
		if err := writeStateFile(path, state); err != nil {
			return err
		}
	} else if err := analytics.EncodeState(os.Stdout, state); err != nil {
		return err
	}

	analysisLogger.Info("Merged markers", "from", from, "to", to, "values", changed)

	return nil
}

// writeStateFile fails if either encoding or closing the file fails, so a
// truncated file never goes unreported.
func writeStateFile(path string, state analytics.State) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	return analytics.EncodeState(f, state)
}
