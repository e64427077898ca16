package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/sheetcheck/internal/rules"
	"github.com/JonMunkholm/sheetcheck/internal/schema"
	"github.com/JonMunkholm/sheetcheck/internal/service"
	"github.com/JonMunkholm/sheetcheck/internal/table"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of an upload is kept in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// multipartOverhead allows for form boundaries and headers around the file.
const multipartOverhead = 1 << 20

// SchemaInfo describes a registered schema.
type SchemaInfo struct {
	Key           string       `json:"key"`
	Label         string       `json:"label"`
	Description   string       `json:"description,omitempty"`
	Sheet         string       `json:"sheet,omitempty"`
	HeaderRow     int          `json:"header_row"`
	DuplicateKeys []string     `json:"duplicate_keys,omitempty"`
	ExportTable   string       `json:"export_table,omitempty"`
	Columns       []ColumnInfo `json:"columns"`
}

// ColumnInfo describes one schema column.
type ColumnInfo struct {
	Key      string     `json:"key"`
	Names    []string   `json:"names,omitempty"`
	Required bool       `json:"required"`
	Type     rules.Kind `json:"type"`
	Default  any        `json:"default,omitempty"`
}

func schemaInfo(def schema.Definition) SchemaInfo {
	info := SchemaInfo{
		Key:           def.Key,
		Label:         def.Label,
		Description:   def.Description,
		Sheet:         def.Sheet,
		HeaderRow:     def.HeaderRow,
		DuplicateKeys: def.DuplicateKeys,
		ExportTable:   def.ExportTable,
		Columns:       make([]ColumnInfo, len(def.Columns)),
	}
	for i, c := range def.Columns {
		kind := c.Type
		if kind == "" {
			kind = rules.String
		}
		info.Columns[i] = ColumnInfo{
			Key:      c.Key,
			Names:    c.Names,
			Required: c.Required,
			Type:     kind,
			Default:  c.Default,
		}
	}
	return info
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"schemas":        schema.Count(),
		"export_enabled": s.service.ExportEnabled(),
	}
	if l := s.service.Limiter(); l != nil {
		resp["runs"] = l.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	defs := schema.All()
	infos := make([]SchemaInfo, len(defs))
	for i, def := range defs {
		infos[i] = schemaInfo(def)
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	def, err := schema.Lookup(chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, schemaInfo(def))
}

// handleValidate checks an uploaded file against a schema.
//
// Responds 200 when the file is clean (or forced), 422 with the error list
// when recoverable errors block it, and 400 when a required column is missing.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	req, err := parseValidateQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Message: err.Error(),
			Code:    "REQ001",
		})
		return
	}
	req.Schema = key

	// Unknown schemas fail before the upload is read.
	if _, err := schema.Lookup(key); err != nil {
		respondError(w, r, err, 0)
		return
	}

	if s.opts.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("%w: request exceeds %d bytes", table.ErrFileTooLarge, tooLarge.Limit), 0)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", service.ErrNoFile, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, service.ErrNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	req.FileName = header.Filename
	req.Body = file

	ctx := r.Context()
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	out, err := s.service.Validate(ctx, req)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, statusForOutcome(out), out)
}

// parseValidateQuery reads force, export, header_row and sheet.
func parseValidateQuery(r *http.Request) (service.Request, error) {
	q := r.URL.Query()
	var req service.Request

	var err error
	if req.Force, err = parseBoolParam(q.Get("force")); err != nil {
		return req, fmt.Errorf("invalid force parameter: %w", err)
	}
	if req.Export, err = parseBoolParam(q.Get("export")); err != nil {
		return req, fmt.Errorf("invalid export parameter: %w", err)
	}

	if v := q.Get("header_row"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, fmt.Errorf("invalid header_row parameter %q", v)
		}
		req.HeaderRow = &n
	}
	req.Sheet = q.Get("sheet")
	return req, nil
}

func parseBoolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
