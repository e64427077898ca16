// Package service runs one validation end to end: it takes a run slot,
// resolves the schema, loads the upload, checks it and optionally exports
// the accepted records.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JonMunkholm/sheetcheck/internal/engine"
	"github.com/JonMunkholm/sheetcheck/internal/logging"
	"github.com/JonMunkholm/sheetcheck/internal/schema"
	"github.com/JonMunkholm/sheetcheck/internal/table"
	"github.com/google/uuid"
)

var (
	// ErrNoFile is returned when a request carries no body.
	ErrNoFile = errors.New("no file provided")

	// ErrExportDisabled is returned when an export is requested but no
	// exporter is configured.
	ErrExportDisabled = errors.New("export disabled: no database configured")

	// ErrExportFailed wraps errors from the exporter.
	ErrExportFailed = errors.New("export failed")
)

// Status summarises an Outcome.
type Status string

const (
	StatusOK       Status = "ok"       // no errors, or forced with recoverable errors only
	StatusInvalid  Status = "invalid"  // recoverable errors and not forced
	StatusCritical Status = "critical" // a required column is missing
)

// Exporter persists accepted records. keys fixes the column order.
type Exporter interface {
	Export(ctx context.Context, target string, keys []string, records []engine.Record) (int64, error)
}

// Request describes one validation run.
type Request struct {
	// Schema is a registry key. Ignored when Definition is set.
	Schema     string
	Definition *schema.Definition

	FileName string
	Body     io.Reader

	// HeaderRow and Sheet override the definition when set.
	HeaderRow *int
	Sheet     string

	Force  bool
	Export bool
}

// Outcome is the result of a run that got past setup.
type Outcome struct {
	RunID      string               `json:"run_id"`
	Schema     string               `json:"schema"`
	File       string               `json:"file,omitempty"`
	Status     Status               `json:"status"`
	Rows       int                  `json:"rows"`
	ErrorCount int                  `json:"error_count"`
	Critical   bool                 `json:"critical"`
	Forced     bool                 `json:"forced"`
	Errors     []engine.ErrorRecord `json:"errors"`
	Keys       []string             `json:"keys"`
	Records    []engine.Record      `json:"records,omitempty"`
	Exported   int64                `json:"exported"`
	Duration   time.Duration        `json:"duration_ns"`
}

// Options configures a Service.
type Options struct {
	Limiter     *Limiter
	Exporter    Exporter
	Logger      *slog.Logger
	MaxFileSize int64
	Workers     int
}

// Service validates uploads against registered schemas.
type Service struct {
	limiter     *Limiter
	exporter    Exporter
	logger      *slog.Logger
	maxFileSize int64
	workers     int
}

// New creates a Service. A nil limiter means runs are not bounded and a nil
// exporter disables exports.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		limiter:     opts.Limiter,
		exporter:    opts.Exporter,
		logger:      logger,
		maxFileSize: opts.MaxFileSize,
		workers:     opts.Workers,
	}
}

// Limiter returns the run limiter, possibly nil.
func (s *Service) Limiter() *Limiter { return s.limiter }

// ExportEnabled reports whether an exporter is configured.
func (s *Service) ExportEnabled() bool { return s.exporter != nil }

// Validate runs req. Setup problems (unknown schema, unreadable file, bad
// definition, busy limiter, failed export) are returned as errors.
// Validation errors are not: they are reported in the Outcome.
func (s *Service) Validate(ctx context.Context, req Request) (*Outcome, error) {
	if req.Body == nil {
		return nil, ErrNoFile
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.limiter.Release()
	}

	def, err := s.definition(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.New().String()
	logger := logging.WithFields(ctx, s.logger, "run_id", runID, "schema", def.Key, "file", req.FileName)

	headerRow := def.HeaderRow
	if req.HeaderRow != nil {
		headerRow = *req.HeaderRow
	}
	sheet := def.Sheet
	if req.Sheet != "" {
		sheet = req.Sheet
	}

	body := req.Body
	if s.maxFileSize > 0 {
		body = table.NewLimitedReader(body, s.maxFileSize)
	}

	tbl, err := table.Read(req.FileName, body, table.ReadOptions{HeaderRow: headerRow, Sheet: sheet})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", req.FileName, err)
	}
	logger.Debug("table loaded", "rows", tbl.Len(), "columns", len(tbl.Columns()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := engine.New(tbl,
		engine.WithHeaderRow(headerRow),
		engine.WithLogger(logger),
		engine.WithWorkers(s.workers),
	)
	if err != nil {
		return nil, err
	}
	if err := def.Apply(e); err != nil {
		return nil, err
	}
	e.CheckAll(def.CheckOptions())

	out := &Outcome{
		RunID:    runID,
		Schema:   def.Key,
		File:     req.FileName,
		Rows:     tbl.Len(),
		Critical: e.HasCritical(),
		Forced:   req.Force,
		Errors:   e.Errors(),
		Keys:     e.Keys(),
	}
	out.ErrorCount = len(out.Errors)

	records, err := e.Result(req.Force)
	if err != nil && !errors.Is(err, engine.ErrValidationFailed) {
		return nil, err
	}
	out.Records = records

	switch {
	case out.Critical:
		out.Status = StatusCritical
	case err != nil:
		out.Status = StatusInvalid
	default:
		out.Status = StatusOK
	}

	if req.Export && out.Status == StatusOK {
		n, err := s.export(ctx, def, out.Keys, records)
		if err != nil {
			return nil, err
		}
		out.Exported = n
		logger.Info("records exported", "target", def.ExportTable, "rows", n)
	}

	out.Duration = time.Since(start)
	logger.Info("run finished",
		"status", out.Status,
		"rows", out.Rows,
		"errors", out.ErrorCount,
		"duration", out.Duration,
	)
	return out, nil
}

func (s *Service) definition(req Request) (schema.Definition, error) {
	if req.Definition != nil {
		return *req.Definition, nil
	}
	return schema.Lookup(req.Schema)
}

func (s *Service) export(ctx context.Context, def schema.Definition, keys []string, records []engine.Record) (int64, error) {
	if s.exporter == nil {
		return 0, ErrExportDisabled
	}
	if def.ExportTable == "" {
		return 0, fmt.Errorf("%w: schema %q has no export table", ErrExportFailed, def.Key)
	}
	n, err := s.exporter.Export(ctx, def.ExportTable, keys, records)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return n, nil
}
