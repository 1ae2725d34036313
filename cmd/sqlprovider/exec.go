package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/VatsalSy/SqlProvider/pkg/dataprovider"
)

var execCmd = &cobra.Command{
	Use:   "exec <sql> [args...]",
	Short: "Execute a command and print the affected row count",
	Long: `Execute a non-query command (INSERT, UPDATE, DELETE, DDL).

Extra arguments are bound positionally. Use --param name=value to bind
:name placeholders instead.`,
	Example: `  # Positional parameters
  sqlprovider exec "DELETE FROM items WHERE id = ?" 42

  # Named parameters
  sqlprovider exec "UPDATE items SET name = :name WHERE id = :id" --param name=pear --param id=2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

var scalarCmd = &cobra.Command{
	Use:   "scalar <sql> [args...]",
	Short: "Run a query and print the first column of the first row",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScalar,
}

var (
	execParams   map[string]string
	scalarParams map[string]string
)

func init() {
	execCmd.Flags().StringToStringVarP(&execParams, "param", "p", nil,
		"named parameter (name=value), repeatable")
	scalarCmd.Flags().StringToStringVarP(&scalarParams, "param", "p", nil,
		"named parameter (name=value), repeatable")
}

func runExec(cmd *cobra.Command, args []string) error {
	application, ctx, cleanup, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := application.NewSession()
	if err != nil {
		return err
	}

	n, err := session.Execute(ctx, buildCommand(args, execParams))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %d row(s) affected\n", color.GreenString("✓"), n)
	return nil
}

func runScalar(cmd *cobra.Command, args []string) error {
	application, ctx, cleanup, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := application.NewSession()
	if err != nil {
		return err
	}

	value, err := session.Scalar(ctx, buildCommand(args, scalarParams))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatCell(value))
	return nil
}

// buildCommand turns CLI arguments into a command. Named parameters win
// over positional ones.
func buildCommand(args []string, params map[string]string) *dataprovider.Command {
	if len(params) > 0 {
		named := make(dataprovider.Named, len(params))
		for k, v := range params {
			named[k] = v
		}
		return dataprovider.NewNamedCommand(args[0], named)
	}

	positional := make([]any, len(args)-1)
	for i, a := range args[1:] {
		positional[i] = a
	}
	return dataprovider.NewCommand(args[0], positional...)
}
