package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func newDialectCmd(flags *connFlags) *cobra.Command {
	var showKeywords bool

	cmd := &cobra.Command{
		Use:   "dialect",
		Short: "Show the connected engine's dialect",
		Long: `Connect and print the dialect derived from connection metadata: product
name, identifier quoting, identifier case folding, and the engine's
non-standard keywords.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDialect(cmd, flags, showKeywords)
		},
	}

	cmd.Flags().BoolVar(&showKeywords, "keywords", false, "print the full keyword list")

	return cmd
}

func runDialect(cmd *cobra.Command, flags *connFlags, showKeywords bool) error {
	sess, err := buildSession(flags)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Connect(context.Background()); err != nil {
		return err
	}

	d := sess.Dialect()
	if d == nil {
		cmd.Println("Connected, but no dialect could be derived from metadata.")
		return nil
	}

	cmd.Printf("product:                %s\n", d.ProductName())
	if quote, ok := d.IdentifierQuote(); ok {
		cmd.Printf("identifier quote:       %s\n", quote)
	} else {
		cmd.Println("identifier quote:       (none)")
	}
	cmd.Printf("stores upper case:      %v\n", d.StoresUpperCaseIdentifiers())
	cmd.Printf("non-standard keywords:  %d\n", len(d.Keywords()))

	if showKeywords && len(d.Keywords()) > 0 {
		cmd.Println(strings.Join(d.Keywords(), "\n"))
	}
	return nil
}
