package engine

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheetcheck/internal/rules"
	"github.com/JonMunkholm/sheetcheck/internal/table"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, tbl *table.Table, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	e, err := New(tbl, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func mustAdd(t *testing.T, e *Engine, cols ...Column) {
	t.Helper()
	for _, c := range cols {
		if err := e.AddColumn(c); err != nil {
			t.Fatalf("AddColumn(%q) error = %v", c.Key, err)
		}
	}
}

func cell(t *testing.T, e *Engine, pos int, col string) any {
	t.Helper()
	v, ok := e.Table().Get(pos, col)
	if !ok {
		t.Fatalf("column %q not in table", col)
	}
	return v
}

// ----------------------------------------------------------------------------
// Clean runs and the result gate
// ----------------------------------------------------------------------------

func TestCheckAll_CleanTable(t *testing.T) {
	tbl := table.MustNew(
		[]string{"Nome do Serviço", "Valor (R$)", "Observação"},
		[][]any{
			{"Corte", "10,50", "x"},
			{"Escova", "20", "y"},
		},
	)
	e := newEngine(t, tbl)
	mustAdd(t, e,
		Column{Key: "descricao", Names: []string{"nome"}, Required: true},
		Column{Key: "preco", Names: []string{"valor"}, Required: true, Type: rules.Float},
	)

	if e.CheckAll(CheckOptions{}) {
		t.Fatalf("CheckAll() reported errors: %v", e.Errors())
	}

	got, err := e.Result(false)
	if err != nil {
		t.Fatalf("Result(false) error = %v", err)
	}
	want := []Record{
		{"descricao": "Corte", "preco": 10.5},
		{"descricao": "Escova", "preco": 20.0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Result() = %v, want %v", got, want)
	}
}

func TestResult_ZeroRows(t *testing.T) {
	e := newEngine(t, table.MustNew([]string{"Nome"}, nil))
	mustAdd(t, e, Column{Key: "descricao", Names: []string{"nome"}, Required: true})

	e.CheckAll(CheckOptions{})
	got, err := e.Result(false)
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Result() = %#v, want empty non-nil slice", got)
	}
}

func TestResult_NormalizesNaN(t *testing.T) {
	tbl := table.MustNew([]string{"Valor"}, [][]any{{"1"}})
	e := newEngine(t, tbl)
	nan := rules.Func(func(any) (any, error) { return math.NaN(), nil })
	mustAdd(t, e, Column{Key: "preco", Names: []string{"valor"}, Type: rules.Float, After: nan})

	e.CheckAll(CheckOptions{})
	got, _ := e.Result(false)
	if v, ok := got[0]["preco"]; !ok || v != nil {
		t.Errorf("preco = %v (present %v), want explicit nil", v, ok)
	}
}

// ----------------------------------------------------------------------------
// Cell pipeline
// ----------------------------------------------------------------------------

func TestCellFailure_KeepsOriginalValue(t *testing.T) {
	tbl := table.MustNew([]string{"Valor"}, [][]any{{"abc"}, {"12,5"}})
	e := newEngine(t, tbl)
	mustAdd(t, e, Column{Key: "preco", Names: []string{"valor"}, Required: true, Type: rules.Float})

	if !e.CheckAll(CheckOptions{}) {
		t.Fatal("CheckAll() = false, want errors")
	}

	errs := e.Errors()
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	want := ErrorRecord{Severity: Recoverable, Line: 3, Column: "preco", Message: "value 'abc' is not a number"}
	if errs[0] != want {
		t.Errorf("error = %+v, want %+v", errs[0], want)
	}

	if v := cell(t, e, 0, "preco"); v != "abc" {
		t.Errorf("failed cell = %v, want original %q", v, "abc")
	}
	if v := cell(t, e, 1, "preco"); v != 12.5 {
		t.Errorf("valid cell = %v, want 12.5", v)
	}
}

func TestCellChain_OrderAndShortCircuit(t *testing.T) {
	var calls []string
	step := func(name string, fail bool) rules.Validator {
		return rules.Func(func(v any) (any, error) {
			calls = append(calls, name)
			if fail {
				return nil, rules.Invalid("%s failed", name)
			}
			return v.(string) + "+" + name, nil
		})
	}

	tests := []struct {
		name      string
		before    rules.Validator
		after     rules.Validator
		wantCalls []string
		wantValue any
		wantMsg   string
	}{
		{
			name:      "all pass",
			before:    step("before", false),
			after:     step("after", false),
			wantCalls: []string{"before", "after"},
			wantValue: "x+before+after",
		},
		{
			name:      "before fails",
			before:    step("before", true),
			after:     step("after", false),
			wantCalls: []string{"before"},
			wantValue: "x",
			wantMsg:   "before failed",
		},
		{
			name:      "after fails",
			before:    step("before", false),
			after:     step("after", true),
			wantCalls: []string{"before", "after"},
			wantValue: "x",
			wantMsg:   "after failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = nil
			e := newEngine(t, table.MustNew([]string{"Campo"}, [][]any{{"x"}}))
			mustAdd(t, e, Column{Key: "campo", Before: tt.before, After: tt.after})

			e.CheckAll(CheckOptions{})

			if !reflect.DeepEqual(calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", calls, tt.wantCalls)
			}
			if v := cell(t, e, 0, "campo"); v != tt.wantValue {
				t.Errorf("cell = %v, want %v", v, tt.wantValue)
			}
			errs := e.Errors()
			if tt.wantMsg == "" {
				if len(errs) != 0 {
					t.Errorf("unexpected errors %v", errs)
				}
				return
			}
			if len(errs) != 1 || errs[0].Message != tt.wantMsg {
				t.Errorf("errors = %v, want one %q", errs, tt.wantMsg)
			}
		})
	}
}

func TestLineTranslation(t *testing.T) {
	tests := []struct {
		name      string
		headerRow int
		index     int
		want      int
	}{
		{name: "header row 1, first row", headerRow: 1, index: 0, want: 3},
		{name: "header row 0, first row", headerRow: 0, index: 0, want: 2},
		{name: "header row 3, tenth row", headerRow: 3, index: 9, want: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Line(tt.index, tt.headerRow); got != tt.want {
				t.Errorf("Line(%d, %d) = %d, want %d", tt.index, tt.headerRow, got, tt.want)
			}
		})
	}
}

func TestLineTranslation_StableAfterBlankRows(t *testing.T) {
	input := "Planilha\nNome,Valor\nCorte,1\n,\nEscova,abc\n"
	tbl, err := table.ReadCSV(strings.NewReader(input), table.ReadOptions{HeaderRow: 1})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	e := newEngine(t, tbl, WithHeaderRow(1))
	mustAdd(t, e, Column{Key: "preco", Names: []string{"valor"}, Type: rules.Float})
	e.CheckAll(CheckOptions{})

	errs := e.Errors()
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	// "Escova,abc" is line 5 of the document.
	if errs[0].Line != 5 {
		t.Errorf("Line = %d, want 5", errs[0].Line)
	}
}

// ----------------------------------------------------------------------------
// Row pipeline
// ----------------------------------------------------------------------------

func TestRowTransform(t *testing.T) {
	tbl := table.MustNew(
		[]string{"Nome", "Valor", "Extra"},
		[][]any{
			{"Corte", "10", "e1"},
			{"Ruim", "20", "e2"},
			{"Escova", "30", "e3"},
		},
	)
	e := newEngine(t, tbl)
	mustAdd(t, e,
		Column{Key: "descricao", Names: []string{"nome"}},
		Column{Key: "preco", Names: []string{"valor"}, Type: rules.Float},
	)

	var seen []map[string]any
	transform := rules.RowFunc(func(row map[string]any) (map[string]any, error) {
		seen = append(seen, row)
		if row["descricao"] == "Ruim" {
			return nil, rules.Invalid("row rejected")
		}
		return map[string]any{
			"preco": row["preco"].(float64) * 2,
			"Extra": "overwritten",
		}, nil
	})

	e.CheckAll(CheckOptions{Row: transform})

	if len(seen) != 3 {
		t.Fatalf("transform called %d times, want 3", len(seen))
	}
	if _, ok := seen[0]["Extra"]; ok {
		t.Error("projection included an unbound column")
	}

	errs := e.Errors()
	want := []ErrorRecord{{Severity: Recoverable, Line: 4, Message: "row rejected"}}
	if !reflect.DeepEqual(errs, want) {
		t.Errorf("errors = %+v, want %+v", errs, want)
	}

	if v := cell(t, e, 0, "preco"); v != 20.0 {
		t.Errorf("row 0 preco = %v, want 20", v)
	}
	if v := cell(t, e, 1, "preco"); v != 20.0 {
		t.Errorf("rejected row preco = %v, want unchanged 20", v)
	}
	if v := cell(t, e, 2, "preco"); v != 60.0 {
		t.Errorf("row 2 preco = %v, want 60", v)
	}
	if v := cell(t, e, 0, "Extra"); v != "e1" {
		t.Errorf("unbound column written back: %v", v)
	}
}

// ----------------------------------------------------------------------------
// Spreadsheet scenarios
// ----------------------------------------------------------------------------

func TestScenario_EmptyRequiredValue(t *testing.T) {
	tbl := table.MustNew([]string{"Nome"}, [][]any{{nil}})
	e := newEngine(t, tbl, WithHeaderRow(1))
	mustAdd(t, e, Column{Key: "descricao", Names: []string{"nome"}, Required: true, Before: rules.NotEmpty})

	if !e.CheckAll(CheckOptions{}) {
		t.Fatal("CheckAll() = false, want errors")
	}

	want := []ErrorRecord{{Severity: Recoverable, Line: 3, Column: "descricao", Message: "Empty value"}}
	if got := e.Errors(); !reflect.DeepEqual(got, want) {
		t.Errorf("errors = %+v, want %+v", got, want)
	}

	if _, err := e.Result(false); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("Result(false) err = %v, want ErrValidationFailed", err)
	}

	got, err := e.Result(true)
	if err != nil {
		t.Fatalf("Result(true) error = %v", err)
	}
	if v, ok := got[0]["descricao"]; !ok || v != nil {
		t.Errorf("descricao = %v (present %v), want nil", v, ok)
	}
}

func TestScenario_DuplicateKey(t *testing.T) {
	tbl := table.MustNew([]string{"Nome"}, [][]any{{"A100"}, {"A100"}})
	e := newEngine(t, tbl, WithHeaderRow(1))
	mustAdd(t, e, Column{Key: "descricao", Names: []string{"nome"}, Required: true})

	e.CheckAll(CheckOptions{DuplicateKeys: []string{"descricao"}})

	want := []ErrorRecord{{
		Severity: Recoverable,
		Line:     4,
		Column:   "descricao",
		Message:  "value 'A100' is duplicated",
	}}
	if got := e.Errors(); !reflect.DeepEqual(got, want) {
		t.Errorf("errors = %+v, want %+v", got, want)
	}
}

func TestScenario_OptionalDefault(t *testing.T) {
	tbl := table.MustNew([]string{"Nome"}, [][]any{{"Corte"}, {"Escova"}})
	e := newEngine(t, tbl)
	mustAdd(t, e,
		Column{Key: "descricao", Names: []string{"nome"}, Required: true},
		Column{Key: "custosGerais", Names: []string{"custo"}, Default: 0.0, Type: rules.Float},
	)

	if e.CheckAll(CheckOptions{}) {
		t.Fatalf("unexpected errors: %v", e.Errors())
	}

	got, err := e.Result(false)
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	for i, rec := range got {
		if rec["custosGerais"] != 0.0 {
			t.Errorf("record %d custosGerais = %v, want 0", i, rec["custosGerais"])
		}
	}
}

func TestScenario_MissingRequiredColumn(t *testing.T) {
	tbl := table.MustNew([]string{"Nome"}, [][]any{{"Corte"}})
	e := newEngine(t, tbl, WithHeaderRow(1))
	mustAdd(t, e,
		Column{Key: "descricao", Names: []string{"nome"}, Required: true},
		Column{Key: "preco", Names: []string{"valor"}, Required: true, Type: rules.Float},
	)

	want := []ErrorRecord{{Severity: Critical, Line: 2, Message: "Required column 'valor' not found!"}}
	if got := e.Errors(); !reflect.DeepEqual(got, want) {
		t.Fatalf("errors after bind = %+v, want %+v", got, want)
	}
	if !e.HasCritical() {
		t.Error("HasCritical() = false")
	}

	e.CheckAll(CheckOptions{})
	if n := len(e.Errors()); n != 1 {
		t.Errorf("unbound column was validated: %d errors", n)
	}

	got, err := e.Result(true)
	if err != nil {
		t.Fatalf("Result(true) error = %v", err)
	}
	if _, ok := got[0]["preco"]; ok {
		t.Error("missing required key present in forced result")
	}
	if !reflect.DeepEqual(e.Keys(), []string{"descricao"}) {
		t.Errorf("Keys() = %v", e.Keys())
	}
}

// ----------------------------------------------------------------------------
// Aggregation
// ----------------------------------------------------------------------------

func TestCheckAll_StageOrder(t *testing.T) {
	tbl := table.MustNew(
		[]string{"Nome", "Valor"},
		[][]any{{"A", "x"}, {"A", "1"}},
	)
	e := newEngine(t, tbl)
	mustAdd(t, e,
		Column{Key: "descricao", Names: []string{"nome"}},
		Column{Key: "preco", Names: []string{"valor"}, Type: rules.Float},
	)

	reject := rules.RowFunc(func(map[string]any) (map[string]any, error) {
		return nil, rules.Invalid("row")
	})
	e.CheckAll(CheckOptions{Row: reject, DuplicateKeys: []string{"descricao"}})

	var got []string
	for _, r := range e.Errors() {
		got = append(got, r.Message)
	}
	want := []string{"value 'x' is not a number", "row", "row", "value 'A' is duplicated"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("messages = %v, want %v", got, want)
	}
}

func TestCheckAll_RepeatedCallsAccumulate(t *testing.T) {
	e := newEngine(t, table.MustNew([]string{"Valor"}, [][]any{{"abc"}}))
	mustAdd(t, e, Column{Key: "preco", Names: []string{"valor"}, Type: rules.Float})

	e.CheckAll(CheckOptions{})
	e.CheckAll(CheckOptions{})

	if n := len(e.Errors()); n != 2 {
		t.Errorf("errors after two runs = %d, want 2", n)
	}
}

func TestCheckAll_ParallelMatchesSequential(t *testing.T) {
	build := func() *table.Table {
		rows := make([][]any, 50)
		for i := range rows {
			v := "1"
			if i%7 == 0 {
				v = "bad"
			}
			rows[i] = []any{v, v, v, v}
		}
		return table.MustNew([]string{"A", "B", "C", "D"}, rows)
	}
	cols := []Column{
		{Key: "a", Names: []string{"a"}, Type: rules.Float},
		{Key: "b", Names: []string{"b"}, Type: rules.Int},
		{Key: "c", Names: []string{"c"}, Type: rules.Float},
		{Key: "d", Names: []string{"d"}, Type: rules.Bool},
	}

	seq := newEngine(t, build())
	mustAdd(t, seq, cols...)
	seq.CheckAll(CheckOptions{})

	par := newEngine(t, build(), WithWorkers(4))
	mustAdd(t, par, cols...)
	par.CheckAll(CheckOptions{})

	if !reflect.DeepEqual(seq.Errors(), par.Errors()) {
		t.Error("parallel errors differ from sequential errors")
	}
	seqRes, _ := seq.Result(true)
	parRes, _ := par.Result(true)
	if !reflect.DeepEqual(seqRes, parRes) {
		t.Error("parallel result differs from sequential result")
	}
}

func TestPrintErrors(t *testing.T) {
	tbl := table.MustNew([]string{"Valor"}, [][]any{{"abc"}})
	e := newEngine(t, tbl)
	mustAdd(t, e,
		Column{Key: "preco", Names: []string{"valor"}, Type: rules.Float},
		Column{Key: "descricao", Names: []string{"nome"}, Required: true},
	)
	e.CheckAll(CheckOptions{
		Row: rules.RowFunc(func(map[string]any) (map[string]any, error) {
			return nil, rules.Invalid("bad row")
		}),
	})

	var buf bytes.Buffer
	if err := e.PrintErrors(&buf); err != nil {
		t.Fatalf("PrintErrors() error = %v", err)
	}

	want := strings.Join([]string{
		"CRITICAL! in line 2: Required column 'nome' not found!",
		"RECOVERABLE! in line 3, Column preco: value 'abc' is not a number",
		"RECOVERABLE! in line 3: bad row",
	}, "\n") + "\n"
	if buf.String() != want {
		t.Errorf("PrintErrors() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) should fail")
	}
	if _, err := New(table.MustNew(nil, nil), WithHeaderRow(-1)); err == nil {
		t.Error("negative header row should fail")
	}

	e, err := New(table.MustNew(nil, nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if e.HeaderRow() != DefaultHeaderRow {
		t.Errorf("HeaderRow() = %d, want %d", e.HeaderRow(), DefaultHeaderRow)
	}
}

func TestSeverity_Text(t *testing.T) {
	for _, s := range []Severity{Critical, Recoverable} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		var back Severity
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", b, err)
		}
		if back != s {
			t.Errorf("round trip %v -> %q -> %v", s, b, back)
		}
	}
}
