// Command sheetcheck validates spreadsheets against schema definitions.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/sheetcheck/internal/report"
	_ "github.com/JonMunkholm/sheetcheck/internal/schema/builtin" // Register built-in schemas
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK       = 0
	exitFatal    = 1
	exitInvalid  = 2
	exitCritical = 3
)

// exitError carries a non-zero exit code for a run that itself succeeded.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return exitCode(root.Execute(), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	if report.IsUserFacing(err) {
		ue := report.NewUserError(err)
		fmt.Fprintf(stderr, "Error: %s (Code: %s). %s Detail: %v\n", ue.User.Message, ue.User.Code, ue.User.Action, ue.Technical)
		return exitFatal
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitFatal
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "sheetcheck",
		Short: "Validate spreadsheets against schema definitions",
		Long: `sheetcheck binds spreadsheet columns to a schema, checks every cell,
applies row rules and duplicate checks, and reports every problem with its
line number.

Examples:
  sheetcheck schemas                          # List available schemas
  sheetcheck validate servicos.xlsx -s servico
  sheetcheck validate clientes.csv --schema-file clientes.yaml --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().String("schema-dir", "", "Directory of extra YAML schema definitions")
	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newSchemasCmd())
	return root
}
