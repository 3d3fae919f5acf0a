// Package cli wires the sqldeck command tree: flag parsing, profile
// resolution, and construction of the session each subcommand drives.
package cli

import (
	"github.com/spf13/cobra"
)

// connFlags are the connection settings shared by every subcommand. A value
// given on the command line overrides the same field of the selected profile.
type connFlags struct {
	configPath string
	profile    string

	url        string
	driverName string
	username   string
	password   string
	nickname   string
	properties []string

	autoCommit bool
	isolation  string

	logLevel  string
	logFormat string
}

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	flags := &connFlags{}

	cmd := &cobra.Command{
		Use:   "sqldeck",
		Short: "Inspect SQL databases through a uniform session layer",
		Long: `sqldeck connects to a SQL database through one of its pluggable drivers,
derives the engine's dialect from connection metadata, and exposes the
catalog's tables. Connection settings come from flags, from a YAML profile
file, or both — flags win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to the YAML profile file")
	pf.StringVar(&flags.profile, "profile", "", "profile name inside the config file")
	pf.StringVar(&flags.url, "url", "", "database URL, e.g. postgres://host:5432/app")
	pf.StringVar(&flags.driverName, "driver", "", "driver name to load before probing (postgres, mysql, sqlite)")
	pf.StringVarP(&flags.username, "user", "u", "", "username for the connection")
	pf.StringVarP(&flags.password, "password", "p", "", "password for the connection")
	pf.StringVar(&flags.nickname, "nickname", "", "human label for the connection")
	pf.StringArrayVar(&flags.properties, "property", nil, "extra connection property as key=value (repeatable)")
	pf.BoolVar(&flags.autoCommit, "autocommit", true, "auto-commit state applied after connect")
	pf.StringVar(&flags.isolation, "isolation", "", "transaction isolation level, e.g. TRANSACTION_READ_COMMITTED")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: console or json")

	cmd.AddCommand(newTablesCmd(flags))
	cmd.AddCommand(newDialectCmd(flags))
	cmd.AddCommand(newSnapshotCmd(flags))
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func newVersionCmd(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("sqldeck %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
