package main

import (
	"context"
	"datapack/internal/commerce"
	"datapack/internal/config"
	"datapack/internal/datapack"
	"datapack/internal/logging"
	"datapack/internal/results"
	"datapack/internal/stores"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
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
		storesFile = flag.String("stores", cfg.Paths.StoresFile, "path to the datapack store configuration")
		dryRun     = flag.Bool("dry-run", false, "log the store groups and views that would be created without creating them")
		timeout    = flag.Duration("timeout", cfg.Timeout, "overall timeout for commerce calls")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	shutdown, err := logging.Setup(ctx, cfg, "importstores")
	if err != nil {
		exitErr(fmt.Errorf("set up logging: %w", err))
	}

	client, err := commerce.NewClient(cfg.Commerce)
	if err != nil {
		_ = shutdown(context.Background())
		exitErr(fmt.Errorf("create commerce client: %w", err))
	}
	slog.InfoContext(ctx, "importing stores", "stores_file", *storesFile, "base_url", cfg.Commerce.BaseURL, "request_id", client.RequestID(), "dry_run", *dryRun)

	im := stores.NewImporter(client, results.New(), slog.Default())
	im.DryRun = *dryRun

	err = run(ctx, im, *storesFile, os.Stdout)
	_ = shutdown(context.Background())
	if err != nil {
		exitErr(err)
	}
}

// run imports the stores file and prints the summary as JSON. Any failed record makes the
// run fail so CI notices.
func run(ctx context.Context, im *stores.Importer, path string, out io.Writer) error {
	summary, err := im.ImportFile(ctx, path)
	summary.Log(ctx, "store import")

	data, merr := datapack.Marshal(summary)
	if merr != nil {
		return errors.Join(err, merr)
	}
	if _, werr := out.Write(data); werr != nil {
		return errors.Join(err, werr)
	}

	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d stores failed to import", summary.Failed, summary.Total)
	}
	return nil
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
