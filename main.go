package main

import (
	"context"
	"errors"
	"io/fs"
	stdlog "log"
	"os"

	"github.com/joho/godotenv"
	"github.com/rubiojr/msgsearch/cmd"
	"github.com/rubiojr/msgsearch/pkg/config"
	"github.com/rubiojr/msgsearch/pkg/log"
	"github.com/urfave/cli/v3"
)

func main() {
	// MSGSEARCH_* overrides may come from a .env file in the working directory.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		stdlog.Printf("Warning: failed to load .env file: %v", err)
	}

	app := &cli.Command{
		Name:  "msgsearch",
		Usage: "Paginated search over a cached copy of a remote message feed",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			log.SetGlobalDebug(c.Bool("debug"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.ServeCommand(),
			cmd.LambdaCommand(),
			cmd.RefreshCommand(),
			cmd.SearchCommand(),
			cmd.VersionCommand(),
		},
	}

	args := os.Args
	// The Lambda runtime starts the bootstrap binary without arguments.
	if len(args) == 1 && os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		args = append(args, "lambda")
	}

	if err := app.Run(context.Background(), args); err != nil {
		stdlog.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		stdlog.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}
