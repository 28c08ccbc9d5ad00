/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/humaidq/trtlog/cmd"
	"github.com/humaidq/trtlog/logging"
)

func main() {
	logger := logging.Logger(logging.SourceApp)

	app := &cli.Command{
		Name:  "trtlog",
		Usage: "TRT Log - personal lab result tracking and analysis",
		Commands: []*cli.Command{
			cmd.CmdStart,
			cmd.CmdMigrate,
			cmd.CmdAnalyze,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("Command failed", "error", err)
	}
}
