package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/sheetcheck/internal/logging"
	"github.com/JonMunkholm/sheetcheck/internal/report"
	"github.com/JonMunkholm/sheetcheck/internal/schema"
	"github.com/JonMunkholm/sheetcheck/internal/service"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a CSV or XLSX file",
		Long: `Validate a CSV or XLSX file against a schema.

Exit status is 0 when the file is accepted, 2 when recoverable errors block
it (use --force to accept anyway), 3 when a required column is missing and
1 on any other failure.`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}

	cmd.Flags().StringP("schema", "s", "", "Registered schema key")
	cmd.Flags().String("schema-file", "", "YAML schema definition file")
	cmd.Flags().Int("header-row", -1, "0-based header row (default: from schema)")
	cmd.Flags().String("sheet", "", "Sheet name search term for XLSX files")
	cmd.Flags().BoolP("force", "f", false, "Accept records despite recoverable errors")
	cmd.Flags().BoolP("json", "j", false, "Print the full outcome as JSON")
	cmd.Flags().Int("workers", 1, "Columns validated in parallel")
	cmd.MarkFlagsMutuallyExclusive("schema", "schema-file")
	cmd.MarkFlagsOneRequired("schema", "schema-file")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	schemaKey, _ := flags.GetString("schema")
	schemaFile, _ := flags.GetString("schema-file")
	headerRow, _ := flags.GetInt("header-row")
	sheet, _ := flags.GetString("sheet")
	force, _ := flags.GetBool("force")
	asJSON, _ := flags.GetBool("json")
	workers, _ := flags.GetInt("workers")
	logLevel, _ := cmd.Root().PersistentFlags().GetString("log-level")

	if err := registerSchemaDir(cmd); err != nil {
		return err
	}

	req := service.Request{
		Schema:   schemaKey,
		FileName: filepath.Base(args[0]),
		Sheet:    sheet,
		Force:    force,
	}
	if schemaFile != "" {
		def, err := schema.LoadFile(schemaFile)
		if err != nil {
			return err
		}
		req.Definition = &def
	}
	if headerRow >= 0 {
		req.HeaderRow = &headerRow
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	req.Body = f

	svc := service.New(service.Options{
		Logger:  logging.New(cmd.ErrOrStderr(), logLevel, "text"),
		Workers: workers,
	})
	out, err := svc.Validate(cmd.Context(), req)
	if err != nil {
		return err
	}

	if asJSON {
		if err := report.WriteJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else if err := printOutcome(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	switch out.Status {
	case service.StatusCritical:
		return &exitError{code: exitCritical}
	case service.StatusInvalid:
		return &exitError{code: exitInvalid}
	}
	return nil
}

func printOutcome(w io.Writer, out *service.Outcome) error {
	for _, r := range out.Errors {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s: %d rows, %d errors (%s)\n", out.File, out.Rows, out.ErrorCount, out.Status)
	return err
}

func registerSchemaDir(cmd *cobra.Command) error {
	dir, _ := cmd.Root().PersistentFlags().GetString("schema-dir")
	if dir == "" {
		return nil
	}
	_, err := schema.RegisterDir(dir)
	return err
}
