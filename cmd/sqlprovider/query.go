package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/VatsalSy/SqlProvider/pkg/resultset"
)

var queryCmd = &cobra.Command{
	Use:   "query <sql> [args...]",
	Short: "Run a query and render the result table",
	Long: `Run a query and render its rows.

Several queries can be run at once with --batch; each gets its own table
named RESULT0, RESULT1 and so on.`,
	Example: `  # Render as a table
  sqlprovider query "SELECT * FROM items WHERE qty > ?" 3

  # CSV output
  sqlprovider query "SELECT * FROM items" --format csv

  # Several queries
  sqlprovider query --batch "SELECT 1" "SELECT 2"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var (
	queryFormat string
	queryTable  string
	queryBatch  bool
	queryParams map[string]string
)

func init() {
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "table",
		"output format: table, csv or markdown")
	queryCmd.Flags().StringVarP(&queryTable, "table", "t", "",
		"result table name")
	queryCmd.Flags().BoolVar(&queryBatch, "batch", false,
		"treat every argument as a separate query")
	queryCmd.Flags().StringToStringVarP(&queryParams, "param", "p", nil,
		"named parameter (name=value), repeatable")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := checkFormat(queryFormat); err != nil {
		return err
	}

	application, ctx, cleanup, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := application.NewSession()
	if err != nil {
		return err
	}

	var set *resultset.Set
	if queryBatch {
		set, err = session.FetchBatch(ctx, args)
	} else {
		set, err = session.FetchRows(ctx, buildCommand(args, queryParams), queryTable, nil)
	}
	if err != nil {
		return err
	}

	return renderSet(cmd.OutOrStdout(), set, queryFormat)
}

func checkFormat(format string) error {
	switch format {
	case "table", "csv", "markdown":
		return nil
	default:
		return fmt.Errorf("unknown format %q (use table, csv or markdown)", format)
	}
}

// renderSet writes every table of set in the given format.
func renderSet(w io.Writer, set *resultset.Set, format string) error {
	for i, tbl := range set.Tables() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if format == "table" && set.Len() > 1 {
			fmt.Fprintln(w, color.YellowString(tbl.Name+":"))
		}

		t := table.NewWriter()
		header := make(table.Row, 0, len(tbl.Columns()))
		for _, name := range tbl.ColumnNames() {
			header = append(header, name)
		}
		t.AppendHeader(header)

		for _, row := range tbl.Rows() {
			cells := make(table.Row, 0, len(header))
			for _, v := range row.Values() {
				cells = append(cells, formatCell(v))
			}
			t.AppendRow(cells)
		}

		switch format {
		case "csv":
			fmt.Fprintln(w, t.RenderCSV())
		case "markdown":
			fmt.Fprintln(w, t.RenderMarkdown())
		default:
			t.SetStyle(table.StyleLight)
			t.AppendFooter(table.Row{fmt.Sprintf("%d row(s)", tbl.Len())})
			fmt.Fprintln(w, t.Render())
		}
	}
	return nil
}

// formatCell renders a result value for display.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "0x" + strings.ToUpper(hex.EncodeToString(t))
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}
