// Package commands holds the ovpnscale CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"ovpnscale/config"
	"ovpnscale/internal/db"
	"ovpnscale/internal/logs"
)

var RootCmd = &cobra.Command{
	Use:   "ovpnscale",
	Short: "OpenVPN fleet configuration renderer",
	Long: `ovpnscale keeps hosts, server and client profiles and certificates of an
OpenVPN fleet in a database and renders them into daemon config files.`,
	SilenceErrors:         true,
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
}

func init() {
	RootCmd.AddCommand(serveCmd, migrateCmd, renderCmd, bundleCmd, certCmd)
}

// Execute executes root CLI command
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ovpnscale:", err)
		os.Exit(1)
	}
}

// setup loads config, configures logging and opens the database.
func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := logs.Init(logs.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, File: cfg.Logging.File}); err != nil {
		return nil, nil, err
	}
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open failed: %w", err)
	}
	return cfg, d, nil
}

func closeDB(d *gorm.DB) {
	if sqlDB, err := d.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
