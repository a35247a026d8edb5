package cmd

import (
	"encoding/json"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = pretty.Pretty(b)
	if color, _ := cmd.Flags().GetBool("color"); color {
		b = pretty.Color(b, nil)
	}
	_, err = os.Stdout.Write(b)
	return err
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
