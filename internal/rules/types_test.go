package rules

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestLookup(t *testing.T) {
	for _, k := range Kinds() {
		if _, err := Lookup(k); err != nil {
			t.Errorf("Lookup(%q) error = %v", k, err)
		}
	}

	if _, err := Lookup(""); err != nil {
		t.Errorf("empty kind should default to string, got %v", err)
	}

	_, err := Lookup("decimal")
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Lookup(decimal) err = %v, want ErrUnknownKind", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{input: "float", want: Float},
		{input: "  Bool ", want: Bool},
		{input: "", want: String},
		{input: "money", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// validatorCase describes a single input for a type validator.
type validatorCase struct {
	name    string
	input   any
	want    any
	wantErr bool
}

func runValidatorCases(t *testing.T, kind Kind, tests []validatorCase) {
	t.Helper()
	v, err := Lookup(kind)
	if err != nil {
		t.Fatalf("Lookup(%q) error = %v", kind, err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate(%v) = %v, want error", tt.input, got)
				}
				if !IsValidationError(err) {
					t.Errorf("error %v is not a *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%v) error = %v", tt.input, err)
			}
			if gt, ok := got.(time.Time); ok {
				if !gt.Equal(tt.want.(time.Time)) {
					t.Errorf("Validate(%v) = %v, want %v", tt.input, got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Validate(%v) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	runValidatorCases(t, String, []validatorCase{
		{name: "nil passes", input: nil, want: nil},
		{name: "collapses whitespace", input: "  Corte   de  cabelo ", want: "Corte de cabelo"},
		{name: "blank becomes nil", input: "   ", want: nil},
		{name: "integral float", input: 10.0, want: "10"},
		{name: "fractional float", input: 10.5, want: "10.5"},
		{name: "int64", input: int64(42), want: "42"},
		{name: "bool", input: true, want: "true"},
		{name: "NaN", input: math.NaN(), want: nil},
	})
}

func TestValidateInt(t *testing.T) {
	runValidatorCases(t, Int, []validatorCase{
		{name: "nil passes", input: nil, want: nil},
		{name: "digits", input: "42", want: int64(42)},
		{name: "thousands", input: "1.234.567", want: int64(1234567)},
		{name: "integral float", input: 7.0, want: int64(7)},
		{name: "fraction", input: "1.5", wantErr: true},
		{name: "text", input: "abc", wantErr: true},
		{name: "bool", input: true, wantErr: true},
	})
}

func TestValidateFloat(t *testing.T) {
	runValidatorCases(t, Float, []validatorCase{
		{name: "nil passes", input: nil, want: nil},
		{name: "plain", input: "123.45", want: 123.45},
		{name: "decimal comma", input: "12,5", want: 12.5},
		{name: "brazilian thousands", input: "R$ 1.234,56", want: 1234.56},
		{name: "us thousands", input: "$1,234.56", want: 1234.56},
		{name: "accounting negative", input: "(50.00)", want: -50.0},
		{name: "scientific", input: "1.5e3", want: 1500.0},
		{name: "int64", input: int64(3), want: 3.0},
		{name: "already float", input: 0.25, want: 0.25},
		{name: "text", input: "dez", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	})
}

func TestValidateDate(t *testing.T) {
	jan15 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	runValidatorCases(t, Date, []validatorCase{
		{name: "nil passes", input: nil, want: nil},
		{name: "iso", input: "2024-01-15", want: jan15},
		{name: "day first", input: "15/01/2024", want: jan15},
		{name: "dotted", input: "15.01.2024", want: jan15},
		{name: "two digit year", input: "15/01/24", want: jan15},
		{name: "compact", input: "20240115", want: jan15},
		{name: "excel serial", input: 45306.0, want: jan15},
		{name: "excel serial string", input: "45306", want: jan15},
		{name: "time value truncated", input: time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC), want: jan15},
		{name: "invalid day", input: "32/01/2024", wantErr: true},
		{name: "text", input: "ontem", wantErr: true},
	})
}

func TestValidateTime(t *testing.T) {
	runValidatorCases(t, Time, []validatorCase{
		{name: "nil passes", input: nil, want: nil},
		{name: "hh:mm:ss", input: "00:30:00", want: "00:30:00"},
		{name: "h:mm", input: "8:05", want: "08:05:00"},
		{name: "12h clock", input: "2:15 pm", want: "14:15:00"},
		{name: "brazilian h", input: "8h30", want: "08:30:00"},
		{name: "excel fraction", input: 0.5, want: "12:00:00"},
		{name: "excel fraction string", input: "0.0208333333", want: "00:30:00"},
		{name: "time value", input: time.Date(2024, 1, 1, 9, 10, 11, 0, time.UTC), want: "09:10:11"},
		{name: "out of range", input: "25:00", wantErr: true},
		{name: "number too large", input: 2.0, wantErr: true},
	})
}

func TestValidateBool(t *testing.T) {
	runValidatorCases(t, Bool, []validatorCase{
		{name: "nil passes", input: nil, want: nil},
		{name: "sim", input: "Sim", want: true},
		{name: "nao with accent", input: "NÃO", want: false},
		{name: "yes", input: "yes", want: true},
		{name: "one", input: "1", want: true},
		{name: "float zero", input: 0.0, want: false},
		{name: "bool", input: true, want: true},
		{name: "talvez", input: "talvez", wantErr: true},
		{name: "two", input: 2.0, wantErr: true},
	})
}

func TestValidateCPF(t *testing.T) {
	runValidatorCases(t, CPF, []validatorCase{
		{name: "nil passes", input: nil, want: nil},
		{name: "formatted", input: "529.982.247-25", want: "52998224725"},
		{name: "digits only", input: "52998224725", want: "52998224725"},
		{name: "numeric cell", input: 52998224725.0, want: "52998224725"},
		{name: "wrong check digit", input: "529.982.247-26", wantErr: true},
		{name: "repeated digits", input: "111.111.111-11", wantErr: true},
		{name: "too short", input: "1234", wantErr: true},
		{name: "letters", input: "529.982.247-2A", wantErr: true},
	})
}

func TestValidateEmail(t *testing.T) {
	runValidatorCases(t, Email, []validatorCase{
		{name: "nil passes", input: nil, want: nil},
		{name: "lower cased", input: " Maria@Exemplo.com.br ", want: "maria@exemplo.com.br"},
		{name: "display name", input: "Maria <maria@exemplo.com>", wantErr: true},
		{name: "no domain dot", input: "maria@localhost", wantErr: true},
		{name: "missing at", input: "maria.exemplo.com", wantErr: true},
		{name: "number", input: 10.0, wantErr: true},
	})
}

func TestValidateSex(t *testing.T) {
	runValidatorCases(t, Sex, []validatorCase{
		{name: "nil passes", input: nil, want: nil},
		{name: "masculino", input: "Masculino", want: "M"},
		{name: "f", input: "f", want: "F"},
		{name: "feminino", input: " FEMININO ", want: "F"},
		{name: "other", input: "x", wantErr: true},
	})
}

func TestNormalizeSeparators(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1234.56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"12,5", "12.5"},
		{"1,234,567", "1234567"},
		{"1.234.567", "1234567"},
	}

	for _, tt := range tests {
		if got := normalizeSeparators(tt.input); got != tt.want {
			t.Errorf("normalizeSeparators(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
