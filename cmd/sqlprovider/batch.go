package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/VatsalSy/SqlProvider/internal/errors"
	"github.com/VatsalSy/SqlProvider/pkg/sqlgen"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run the ;-separated statements of a SQL file",
	Long: `Run every statement of a SQL file in order.

With --tx all statements run in one transaction and the first failure
rolls everything back. Otherwise each statement commits on its own and
--continue-on-error keeps going past failures.`,
	Example: `  # Run a migration atomically
  sqlprovider batch schema.sql --tx

  # Load data, reporting every failing statement
  sqlprovider batch data.sql --continue-on-error`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var (
	batchTx              bool
	batchContinueOnError bool
)

func init() {
	batchCmd.Flags().BoolVar(&batchTx, "tx", false,
		"run all statements in one transaction")
	batchCmd.Flags().BoolVar(&batchContinueOnError, "continue-on-error", false,
		"keep going after a failing statement")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchTx && batchContinueOnError {
		return errors.NewSimple("--tx and --continue-on-error cannot be combined")
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	statements := splitStatements(string(content))
	if len(statements) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("No statements found."))
		return nil
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

	if batchTx {
		n, err := session.ExecuteStatements(ctx, sqlgen.Literal(statements...))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d statement(s), %d row(s) affected\n",
			color.GreenString("✓"), len(statements), n)
		return nil
	}

	bar := progressbar.NewOptions(len(statements),
		progressbar.OptionSetDescription("Executing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	failures := &errors.ErrorBatch{Op: "batch"}
	var total int64
	executed := 0
	for i, stmt := range statements {
		n, err := session.ExecuteCommand(ctx, stmt)
		bar.Add(1)
		if err != nil {
			var domain *errors.Error
			if !errors.AsError(err, &domain) {
				domain = errors.WrapTyped(errors.ErrorTypeCommandFailed, "batch", err)
			}
			failures.Add(domain.WithContext("statement", i+1))

			if !batchContinueOnError || errors.IsContextError(err) {
				break
			}
			continue
		}
		total += n
		executed++
	}
	bar.Finish()

	fmt.Fprintf(cmd.OutOrStdout(), "%s %d statement(s), %d row(s) affected\n",
		color.GreenString("✓"), executed, total)

	if failures.HasErrors() {
		for _, e := range failures.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s statement %v: %v\n",
				color.RedString("✗"), e.Context["statement"], e)
		}
	}

	return failures.ErrOrNil()
}

// splitStatements splits SQL text on semicolons outside quotes and
// comments, dropping empty statements.
func splitStatements(content string) []string {
	var (
		statements   []string
		current      strings.Builder
		quote        rune
		lineComment  bool
		blockComment bool
	)

	runes := []rune(content)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case lineComment:
			if r == '\n' {
				lineComment = false
				current.WriteRune(r)
			}
			continue
		case blockComment:
			if r == '*' && next == '/' {
				blockComment = false
				i++
			}
			continue
		case quote != 0:
			current.WriteRune(r)
			if r == quote {
				if next == quote {
					current.WriteRune(next)
					i++
				} else {
					quote = 0
				}
			}
			continue
		}

		switch {
		case r == '-' && next == '-':
			lineComment = true
			i++
		case r == '/' && next == '*':
			blockComment = true
			i++
		case r == '\'' || r == '"' || r == '`':
			quote = r
			current.WriteRune(r)
		case r == ';':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return statements
}
