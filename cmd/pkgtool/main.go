/*
Copyright 2025 The Packtools authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/packtools/pkg/checksum"
	"github.com/packtools/pkg/logger"
	"github.com/packtools/pkg/telemetry"
)

var rootCmd = &cobra.Command{
	Use:           "pkgtool",
	Short:         "Utilities for working with package artifacts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rootFlags struct {
	logger    logger.Options
	telemetry telemetry.Options
}

var (
	log              logr.Logger
	telemetryManager *telemetry.Manager
)

func init() {
	rootFlags.logger.BindFlags(rootCmd.PersistentFlags())
	rootFlags.telemetry.BindFlags(rootCmd.PersistentFlags())

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		log = logger.NewLogger(rootFlags.logger)
		checksum.SetLogger(log.WithName("checksum"))

		rootFlags.telemetry.Logger = log.WithName("telemetry")
		telemetryManager = telemetry.NewManager(rootFlags.telemetry)
		telemetryManager.Setup(cmd.Context())
	}
}

func setupSignalHandler() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

// run executes the command tree and flushes telemetry afterwards. The
// shutdown must not hang off cobra's PersistentPostRun, which is skipped
// when a command returns an error.
func run(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if telemetryManager != nil {
		telemetryManager.Shutdown(ctx)
	}
	return err
}

func main() {
	if err := run(setupSignalHandler()); err != nil {
		rootCmd.PrintErrln("Error:", err.Error())
		os.Exit(1)
	}
}
