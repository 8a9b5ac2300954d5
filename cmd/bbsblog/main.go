// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for the blog engine using
// the Cobra library. The root command serves an interactive session on
// stdin/stdout, which is how LinBPQ and inetd-style BBS stacks attach a
// connected caller to the engine. Subcommands cover setup, backup,
// restore and store maintenance.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/va2ops/bbsblog/internal/backup"
	"github.com/va2ops/bbsblog/internal/config"
	"github.com/va2ops/bbsblog/internal/content"
	"github.com/va2ops/bbsblog/internal/db"
	"github.com/va2ops/bbsblog/internal/i18n"
	"github.com/va2ops/bbsblog/internal/logging"
	"github.com/va2ops/bbsblog/internal/model"
	"github.com/va2ops/bbsblog/internal/rf"
	"github.com/va2ops/bbsblog/internal/session"
)

var version = "dev" // set by the linker

var (
	cfgFile  string
	callsign string
	cfg      config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already printed the error.
		os.Exit(1)
	}
}

var rootCmd *cobra.Command

func init() {
	rootCmd = newRootCmd()
}

// newRootCmd creates and configures the root cobra command. Kept as a
// constructor so tests can build isolated instances.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bbsblog",
		Short: "bbsblog is a role-gated blog engine for packet radio BBS links.",
		Long: `bbsblog serves a line-oriented blogging session over stdin/stdout,
sized for narrowband RF links: 79-column output, no ANSI, one command
per line. Posts, comments and users live in SQLite, PostgreSQL or
MySQL.

Running without a subcommand starts a session for the connected caller.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE:              runSession,
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(setupCmd)
	cmd.AddCommand(exportCmd)
	cmd.AddCommand(importCmd)
	cmd.AddCommand(maintenanceCmd)

	cmd.Version = version

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is bbsblog.yaml in the config dir or current dir)")
	cmd.PersistentFlags().String("db-type", "", "database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("db-dsn", "", "database connection string (DSN)")
	cmd.PersistentFlags().String("lang", "", `session language ("en", "fr")`)
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&callsign, "callsign", "", "callsign of the connected user (skips the prompt)")

	return cmd
}

// setup resolves configuration and opens the database. It runs before
// every command.
func setup(cmd *cobra.Command, args []string) error {
	// A .env file is a convenience for development setups; ignore absence.
	_ = godotenv.Load()

	c, err := config.LoadConfig[config.Config](cmd.Root(), config.Defaults, &cfgFile)
	if err != nil {
		return err
	}

	// Persistent flags override file and environment when set.
	flags := cmd.Root().PersistentFlags()
	if f := flags.Lookup("db-type"); f.Changed {
		c.Database.Type = f.Value.String()
	}
	if f := flags.Lookup("db-dsn"); f.Changed {
		c.Database.DSN = f.Value.String()
	}
	if f := flags.Lookup("lang"); f.Changed {
		c.Language = f.Value.String()
	}
	if f := flags.Lookup("debug"); f.Changed {
		c.Debug = f.Value.String() == "true"
	}

	if err := c.Validate(); err != nil {
		return err
	}

	i18n.Init(c.Language)
	logging.SetDebug(c.Debug)

	timeout := time.Duration(c.Database.TimeoutSeconds) * time.Second
	if err := db.InitDB(c.Database.Type, c.Database.DSN, timeout); err != nil {
		return fmt.Errorf("%s", i18n.T("cli.error_init_db", err))
	}

	cfg = c
	return nil
}

func newService() (*content.Service, error) {
	if !db.IsInitialized() {
		return nil, fmt.Errorf("database is not initialized; run setup first")
	}
	role, _ := model.ParseRole(cfg.DefaultRole)
	return content.New(db.Active(), cfg.PageSize, role), nil
}

// runSession attaches the connected caller to a blog session on
// stdin/stdout and blocks until it closes.
func runSession(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(os.Stdin)

	call := strings.TrimSpace(callsign)
	if call == "" {
		fmt.Print(i18n.T("cli.enter_callsign"))
		line, err := in.ReadString('\n')
		if err != nil {
			fmt.Println(i18n.T("cli.callsign_required"))
			return nil
		}
		call = strings.TrimSpace(line)
	}
	if call == "" {
		fmt.Println(i18n.T("cli.callsign_required"))
		return nil
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	user, err := svc.GetOrCreateUser(call)
	if err != nil {
		return err
	}

	fmtr := rf.New(cfg.LineWidth, cfg.TruncateAt)
	sess := session.New(svc, fmtr, *user, in, os.Stdout, func() {
		if err := db.Active().Close(); err != nil {
			logging.Warnf("closing store: %v", err)
		}
	})
	sess.Run()
	return nil
}

// newRunCmd is an explicit alias for the root behavior, for BBS configs
// that prefer a named subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve a blog session on stdin/stdout",
		RunE:  runSession,
	}
}

// setupCmd initializes the database schema and seeds the bootstrap admin.
// Opening the database already runs pending migrations, so all that is
// left is the admin account.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initialize the database and seed the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(cfg.AdminCallsign) == "" {
			return fmt.Errorf("admin_callsign is not configured; set it in bbsblog.yaml or BBSBLOG_ADMIN_CALLSIGN")
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		if err := svc.SeedAdmin(cfg.AdminCallsign); err != nil {
			return err
		}
		fmt.Println(i18n.T("cli.setup_done", model.NormalizeCallsign(cfg.AdminCallsign)))

		// First run: persist the resolved configuration so later
		// invocations pick up the same settings without flags.
		if cfgFile == "" {
			if path, pathErr := config.GetConfigPath(false); pathErr == nil {
				if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
					if err := config.WriteConfigFile(&cfg, false); err != nil {
						logging.Warnf("writing config file: %v", err)
					} else {
						fmt.Println(i18n.T("cli.config_written", path))
					}
				}
			}
		}
		return nil
	},
}

// exportCmd dumps the whole store to a zstd-compressed JSON file, usable
// for disaster recovery or for moving to another database backend.
var exportCmd = &cobra.Command{
	Use:   "export [output-file]",
	Short: "Create a compressed (zstd) JSON backup of the database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var outputFile string
		if len(args) == 0 {
			outputFile = fmt.Sprintf("bbsblog-backup-%s.json.zst", time.Now().Format("2006-01-02"))
		} else {
			outputFile = args[0]
			if !strings.HasSuffix(outputFile, ".zst") {
				outputFile += ".zst"
			}
		}
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("could not create file: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := backup.Export(db.Active(), f); err != nil {
			return err
		}
		fmt.Println(i18n.T("cli.export_done", outputFile))
		return nil
	},
}

// importCmd restores a backup file, replacing all current data.
var importCmd = &cobra.Command{
	Use:   "import <backup-file>",
	Short: "Restore the database from a compressed backup (replaces all data)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("could not open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := backup.Import(db.Active(), f); err != nil {
			return err
		}
		fmt.Println(i18n.T("cli.import_done", args[0]))
		return nil
	},
}

// maintenanceCmd runs backend-specific housekeeping (VACUUM and friends).
var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Run database housekeeping for the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.RunMaintenance(cfg.Database.Type, cfg.Database.DSN); err != nil {
			return err
		}
		fmt.Println(i18n.T("cli.maintenance_done"))
		return nil
	},
}
