package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VatsalSy/SqlProvider/pkg/resultset"
	"github.com/VatsalSy/SqlProvider/pkg/sqlgen"
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate INSERT or UPDATE statements from query results",
	Long: `Run a query and print one INSERT or UPDATE statement per result row.

Statements are parameterized for the configured driver unless --literal
is given, in which case values are rendered inline as SQL text.`,
	Example: `  # Copy rows into another table
  sqlprovider gen insert "SELECT id, name FROM items" --table items_copy --literal

  # Refresh quantities by key
  sqlprovider gen update "SELECT id, qty FROM staging" --table items --keys id --columns qty`,
}

var (
	genInsertCmd = &cobra.Command{
		Use:   "insert <query>",
		Short: "Generate INSERT statements",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenInsert,
	}

	genUpdateCmd = &cobra.Command{
		Use:   "update <query>",
		Short: "Generate UPDATE statements",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenUpdate,
	}
)

var (
	genTable   string
	genKeys    []string
	genColumns []string
	genLiteral bool
	genApply   bool
)

func init() {
	for _, c := range []*cobra.Command{genInsertCmd, genUpdateCmd} {
		c.Flags().StringVarP(&genTable, "table", "t", "", "target table (required)")
		c.Flags().StringSliceVar(&genColumns, "columns", nil, "columns to write (default all)")
		c.Flags().BoolVar(&genLiteral, "literal", false, "render values inline as SQL text")
		c.Flags().BoolVar(&genApply, "apply", false, "execute the statements in one transaction")
		c.MarkFlagRequired("table")
	}
	genUpdateCmd.Flags().StringSliceVarP(&genKeys, "keys", "k", nil, "key columns for the WHERE clause (required)")
	genUpdateCmd.MarkFlagRequired("keys")

	genCmd.AddCommand(genInsertCmd)
	genCmd.AddCommand(genUpdateCmd)
}

func runGenInsert(cmd *cobra.Command, args []string) error {
	return runGen(cmd, args[0], func(bindType int, rows []resultset.Row) ([]sqlgen.Statement, error) {
		if genLiteral {
			sqls, err := sqlgen.BuildInsertStatements(rows, columnsOrNil(genColumns), genTable)
			return sqlgen.Literal(sqls...), err
		}
		return sqlgen.Insert(bindType, rows, columnsOrNil(genColumns), genTable)
	})
}

func runGenUpdate(cmd *cobra.Command, args []string) error {
	return runGen(cmd, args[0], func(bindType int, rows []resultset.Row) ([]sqlgen.Statement, error) {
		if genLiteral {
			sqls, err := sqlgen.BuildUpdateStatements(rows, genTable, genKeys, columnsOrNil(genColumns))
			return sqlgen.Literal(sqls...), err
		}
		return sqlgen.Update(bindType, rows, genTable, genKeys, columnsOrNil(genColumns))
	})
}

type generator func(bindType int, rows []resultset.Row) ([]sqlgen.Statement, error)

func runGen(cmd *cobra.Command, query string, generate generator) error {
	application, ctx, cleanup, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	provider, err := application.Provider()
	if err != nil {
		return err
	}
	session := provider.NewSession()

	set, err := session.Query(ctx, query)
	if err != nil {
		return err
	}

	var rows []resultset.Row
	if first := set.First(); first != nil {
		rows = first.Rows()
	}

	statements, err := generate(provider.BindType(), rows)
	if err != nil {
		return err
	}

	if genApply {
		n, err := session.ExecuteStatements(ctx, statements)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d statement(s) applied, %d row(s) affected\n", len(statements), n)
		return nil
	}

	printStatements(cmd, statements)
	return nil
}

func printStatements(cmd *cobra.Command, statements []sqlgen.Statement) {
	out := cmd.OutOrStdout()
	for _, stmt := range statements {
		if len(stmt.Args) == 0 {
			fmt.Fprintf(out, "%s;\n", stmt.SQL)
			continue
		}
		args := make([]string, len(stmt.Args))
		for i, a := range stmt.Args {
			args[i] = sqlgen.FormatValue(a)
		}
		fmt.Fprintf(out, "%s; -- args: %s\n", stmt.SQL, strings.Join(args, ", "))
	}
}

func columnsOrNil(columns []string) []string {
	if len(columns) == 0 {
		return nil
	}
	return columns
}
