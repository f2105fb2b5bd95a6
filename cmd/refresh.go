package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/msgsearch/pkg/cache"
	"github.com/rubiojr/msgsearch/pkg/config"
	"github.com/urfave/cli/v3"
)

// RefreshCommand creates the refresh command
func RefreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch the full dataset from upstream once",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Usage: "Write the fetched dataset to this fallback file (.zst for zstd)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return refreshOnce(ctx, c.String("config"), c.String("output"))
		},
	}
}

// refreshOnce runs a single refresh and optionally saves the result as a
// fallback file that later cold starts can load.
func refreshOnce(ctx context.Context, configPath, output string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The result is written elsewhere, so there is no point loading the
	// current fallback first.
	a, err := newAppWithCache(cfg, cache.New(nil))
	if err != nil {
		return err
	}

	count, err := a.orchestrator.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refreshing from %s: %w", a.client.BaseURL(), err)
	}
	fmt.Printf("Fetched %d messages from %s\n", count, a.client.BaseURL())

	if output == "" {
		return nil
	}
	if err := cache.WriteFallback(output, a.cache.Snapshot()); err != nil {
		return fmt.Errorf("writing fallback file: %w", err)
	}
	fmt.Printf("Wrote %s\n", output)
	return nil
}
