package cli

// tables.go implements `csv2pg tables`: a plain listing of the import
// catalog.

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables recorded in the import catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, cat, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		entries, err := cat.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCHEMA\tTABLE\tIMPORTED AT")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.SchemaName, e.TableName, e.ImportedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
