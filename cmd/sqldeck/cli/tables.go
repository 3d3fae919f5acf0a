package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newTablesCmd(flags *connFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the catalog's tables",
		Long: `Connect and print the catalog's table names, sorted and deduplicated.
Listing failures degrade to an empty result rather than an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(cmd, flags, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "bypass the table cache and reread the catalog")

	return cmd
}

func runTables(cmd *cobra.Command, flags *connFlags, force bool) error {
	sess, err := buildSession(flags)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := context.Background()
	if err := sess.Connect(ctx); err != nil {
		return err
	}

	names := sess.TableNames(ctx, force)
	if len(names) == 0 {
		cmd.Println("No tables found.")
		return nil
	}
	for _, name := range names {
		cmd.Println(name)
	}
	cmd.Printf("(%d tables)\n", len(names))
	return nil
}
