package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Byte-Jerry/ocfs2-tools/internal/logger"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/config"
	"github.com/Byte-Jerry/ocfs2-tools/pkg/state"
)

// Exit codes follow fsck(8).
const (
	exitOK          = 0
	exitCorrected   = 1
	exitUncorrected = 4
	exitError       = 8
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "o2fsck",
		Usage: "check and repair OCFS2 directory structure",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the config file (default $XDG_CONFIG_HOME/o2fsck/config.yaml)",
				EnvVars: []string{"O2FSCK_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override logging.level (DEBUG, INFO, WARN, ERROR)",
			},
		},
		Commands: []*cli.Command{{
			Name:  "init",
			Usage: "write a commented default configuration file",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "force",
					Aliases: []string{"f"},
					Usage:   "overwrite an existing file",
				},
			},
			Action: initConfig,
		}, {
			Name:      "import",
			Usage:     "load an inode scan manifest into the state store",
			ArgsUsage: "<manifest.yaml>",
			Action: withStore(func(c *cli.Context, cfg *config.Config, store state.Store) error {
				return importManifest(c, store)
			}),
		}, {
			Name:  "check",
			Usage: "check and repair every directory block in the state store",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "fix every problem"},
				&cli.BoolFlag{Name: "no", Aliases: []string{"n"}, Usage: "report problems without fixing them"},
				&cli.BoolFlag{Name: "preen", Aliases: []string{"p"}, Usage: "apply the safe default for every problem"},
				&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "write repaired blocks back to the device"},
			},
			Action: withStore(runCheck),
		}, {
			Name:   "parents",
			Usage:  "list the directory parent table and directories marked for rebuild",
			Action: withStore(listParents),
		}, {
			Name:   "last-run",
			Usage:  "show the summary of the most recent check",
			Action: withStore(showLastRun),
		}},
	}
}

func main() {
	app := newApp()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// cli.Exit errors terminate inside RunContext with their own code.
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "o2fsck: %v\n", err)
		cancel()
		os.Exit(exitError)
	}
}

// loadConfig loads the configuration and applies it to the logger.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withStore loads the configuration and opens the state store around f.
func withStore(f func(*cli.Context, *config.Config, state.Store) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		store, err := config.CreateStateStore(c.Context, &cfg.State)
		if err != nil {
			return fmt.Errorf("opening state store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close state store: %v", err)
			}
		}()

		return f(c, cfg, store)
	}
}

func initConfig(c *cli.Context) error {
	force := c.Bool("force")

	if path := c.String("config"); path != "" {
		if err := config.InitConfigToPath(path, force); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		return nil
	}

	path, err := config.InitConfig(force)
	if err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func importManifest(c *cli.Context, store state.Store) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: o2fsck import <manifest.yaml>", exitError)
	}
	path := c.Args().First()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := state.DecodeManifest(f)
	if err != nil {
		return err
	}

	if err := state.Import(c.Context, store, m); err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}

	logger.Info("Imported %s: %d used inodes, %d directories, block size %d",
		path, len(m.Inodes.Used), len(m.Inodes.Directories), m.Filesystem.BlockSize)
	return nil
}
