package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/saveward/saveward/internal"
	pkgconfig "github.com/saveward/saveward/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func save(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := internal.RunOnce(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func list(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := internal.ListArchives(cfg, cmd.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func restore(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	world := cmd.Args().Get(0)
	container := cmd.Args().Get(1)
	if world == "" || container == "" {
		return fmt.Errorf("usage: saveward restore <world> <archive>")
	}
	out, err := internal.RestoreArchive(ctx, cfg, world, container)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func historyCmd(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := internal.History(cfg, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, cfg)
}

func main() {
	cmd := &cli.Command{
		Name:  "saveward",
		Usage: "Incremental world-save backup daemon with rotating zip archives",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("SAVEWARD_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the backup daemon (scheduler, HTTP operator API, optional watcher)",
				Action: serve,
			},
			{
				Name:   "save",
				Usage:  "Trigger one backup cycle and exit",
				Action: save,
			},
			{
				Name:      "list",
				Usage:     "List archive containers for one or all worlds",
				ArgsUsage: "[world]",
				Action:    list,
			},
			{
				Name:      "restore",
				Usage:     "Restore an archive container into the live world directory",
				ArgsUsage: "<world> <archive>",
				Action:    restore,
			},
			{
				Name:  "history",
				Usage: "Show recent backup cycles",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum rows to show",
						Value: 20,
					},
				},
				Action: historyCmd,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tool surface on stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
