package main

import (
	"context"
	"datapack/internal/config"
	"datapack/internal/logging"
	"datapack/internal/servicedata"
	"flag"
	"fmt"
	"io"
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
		sourceDir = flag.String("source", cfg.Paths.OutputDir, "directory holding the generated datapack output")
		outDir    = flag.String("out", "", "write to this directory even when blob storage is configured")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := logging.Setup(ctx, cfg, "servicedata")
	if err != nil {
		exitErr(fmt.Errorf("set up logging: %w", err))
	}

	var sink servicedata.Sink
	if *outDir != "" {
		sink = servicedata.NewFileSink(*outDir)
	} else if sink, err = servicedata.MakeSink(ctx, cfg); err != nil {
		_ = shutdown(context.Background())
		exitErr(fmt.Errorf("create service data sink: %w", err))
	}

	err = run(ctx, servicedata.New(*sourceDir, sink), os.Stdout)
	_ = shutdown(context.Background())
	if err != nil {
		exitErr(err)
	}
}

func run(ctx context.Context, g *servicedata.Generator, out io.Writer) error {
	results, err := g.Run(ctx)
	for _, r := range results {
		if !r.Written {
			fmt.Fprintf(out, "%-10s no data (%s)\n", r.Name, r.Source)
			continue
		}
		fmt.Fprintf(out, "%-10s %d entries -> %s\n", r.Name, r.Count, r.Destination)
	}
	return err
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
