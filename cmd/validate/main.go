package main

import (
	"context"
	"datapack/internal/config"
	"datapack/internal/datapack"
	"datapack/internal/logging"
	"datapack/internal/validation"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		exitErr(fmt.Errorf("load configuration: %w", err))
	}

	var (
		dataDir    = flag.String("data-dir", cfg.Paths.DataDir, "directory holding the datapack entity files")
		reportPath = flag.String("report", "", "write the full report as JSON to this path")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: validate [flags] [%s|%s]\n", validation.PhasePreIngest, validation.PhasePostIngest)
		flag.PrintDefaults()
	}
	flag.Parse()

	phase := validation.PhasePreIngest
	if flag.NArg() > 0 {
		phase = flag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := logging.Setup(ctx, cfg, "validate")
	if err != nil {
		exitErr(fmt.Errorf("set up logging: %w", err))
	}

	err = run(ctx, validation.New(*dataDir), phase, *reportPath)
	_ = shutdown(context.Background())
	if err != nil {
		exitErr(err)
	}
}

func run(ctx context.Context, v *validation.Validator, phase, reportPath string) error {
	report, err := v.RunValidationChecks(ctx, phase)
	if reportPath != "" && report.Checks != nil {
		if werr := datapack.WriteJSON(reportPath, report); werr != nil {
			return fmt.Errorf("write report: %w", werr)
		}
	}
	return err
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
