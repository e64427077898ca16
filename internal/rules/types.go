package rules

// types.go implements the built-in type validators.
//
// Spreadsheet input is messy, so each validator accepts the representations
// users actually type:
//   - Numbers with currency symbols, thousand separators, decimal commas and
//     accounting parentheses
//   - Dates in ISO, day-first and 2-digit-year forms, or as Excel serial numbers
//   - Booleans in English and Portuguese
//
// Cells arrive as strings from the loaders; values already converted by an
// earlier hook (float64, int64, bool, time.Time) are accepted too.

import (
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetcheck/internal/textnorm"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling.
// Slash and dot forms are day-first.
var (
	twoDigitYearLayouts = []string{
		"2/1/06", "02/01/06", "2-1-06", "2.1.06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00",
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
		"2 Jan 2006", "Jan 2, 2006",
		"20060102",
	}
	timeLayouts = []string{
		"15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "3:04PM", "15H04", "15H",
	}
)

// Excel serial dates count days from 1899-12-30.
var (
	excelEpoch     = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	maxExcelSerial = 2958465.0 // 9999-12-31
)

func validateString(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.Join(strings.Fields(x), " ")
		if s == "" {
			return nil, nil
		}
		return s, nil
	case float64:
		if math.IsNaN(x) {
			return nil, nil
		}
		return formatNumber(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format("2006-01-02"), nil
		}
		return x.Format("2006-01-02 15:04:05"), nil
	default:
		return fmt.Sprint(x), nil
	}
}

func validateInt(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	}

	f, ok := toFloat(v)
	if !ok {
		if isNaN(v) {
			return nil, nil
		}
		return nil, Invalid("value '%v' is not an integer", v)
	}
	if f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return nil, Invalid("value '%v' is not an integer", v)
	}
	return int64(f), nil
}

func validateFloat(v any) (any, error) {
	if v == nil || isNaN(v) {
		return nil, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, Invalid("value '%v' is not a number", v)
	}
	return f, nil
}

func validateDate(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return dateOnly(x), nil
	case string:
		if t, ok := parseDate(x); ok {
			return t, nil
		}
	}

	if f, ok := toFloat(v); ok {
		if t, ok := fromExcelSerial(f); ok {
			return dateOnly(t), nil
		}
	}
	return nil, Invalid("value '%v' is not a valid date", v)
}

func validateTime(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x.Format("15:04:05"), nil
	case string:
		s := strings.ToUpper(strings.TrimSpace(x))
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("15:04:05"), nil
			}
		}
	}

	// Excel stores a time of day as a fraction of 24h.
	if f, ok := toFloat(v); ok && f >= 0 && f < 1 {
		secs := int(math.Round(f * 86400))
		if secs == 86400 {
			secs--
		}
		return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60), nil
	}
	return nil, Invalid("value '%v' is not a valid time", v)
}

var (
	trueWords  = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "sim": true, "s": true, "1": true, "verdadeiro": true, "v": true}
	falseWords = map[string]bool{"false": true, "f": true, "no": true, "n": true, "nao": true, "0": true, "falso": true}
)

func validateBool(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case float64:
		if x == 1 || x == 0 {
			return x == 1, nil
		}
	case int64:
		if x == 1 || x == 0 {
			return x == 1, nil
		}
	case string:
		s := textnorm.Fold(x)
		if trueWords[s] {
			return true, nil
		}
		if falseWords[s] {
			return false, nil
		}
	}
	return nil, Invalid("value '%v' is not a boolean", v)
}

func validateCPF(v any) (any, error) {
	var digits string
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		for _, r := range strings.TrimSpace(x) {
			switch {
			case r >= '0' && r <= '9':
				digits += string(r)
			case r == '.' || r == '-' || r == ' ':
			default:
				return nil, Invalid("CPF '%v' contains invalid characters", v)
			}
		}
	default:
		// Numeric cells lose their leading zeros.
		f, ok := toFloat(v)
		if !ok || f < 0 || f != math.Trunc(f) || f >= 1e11 {
			return nil, Invalid("CPF '%v' is not valid", v)
		}
		digits = fmt.Sprintf("%011d", int64(f))
	}

	if len(digits) != 11 {
		return nil, Invalid("CPF '%v' must have 11 digits", v)
	}
	if strings.Count(digits, digits[:1]) == 11 {
		return nil, Invalid("CPF '%v' is not valid", v)
	}
	if cpfCheckDigit(digits[:9]) != digits[9] || cpfCheckDigit(digits[:10]) != digits[10] {
		return nil, Invalid("CPF '%v' is not valid", v)
	}
	return digits, nil
}

// cpfCheckDigit computes the modulo-11 verifier for the given prefix.
func cpfCheckDigit(prefix string) byte {
	sum := 0
	weight := len(prefix) + 1
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * (weight - i)
	}
	r := sum * 10 % 11
	if r == 10 {
		r = 0
	}
	return byte('0' + r)
}

func validateEmail(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, Invalid("value '%v' is not a valid email", v)
	}
	s = strings.TrimSpace(s)

	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || strings.ContainsAny(s, "<>") {
		return nil, Invalid("value '%v' is not a valid email", v)
	}
	at := strings.LastIndexByte(addr.Address, '@')
	if at < 0 || !strings.Contains(addr.Address[at+1:], ".") {
		return nil, Invalid("value '%v' is not a valid email", v)
	}
	return strings.ToLower(addr.Address), nil
}

var sexWords = map[string]string{
	"m": "M", "masculino": "M", "masc": "M", "homem": "M", "male": "M",
	"f": "F", "feminino": "F", "fem": "F", "mulher": "F", "female": "F",
}

func validateSex(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		if out, ok := sexWords[textnorm.Fold(s)]; ok {
			return out, nil
		}
	}
	return nil, Invalid("value '%v' is not a valid sex (expected M or F)", v)
}

// toFloat converts numeric cells and numeric-looking strings.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		return parseNumber(x)
	default:
		return 0, false
	}
}

func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// parseNumber handles currency symbols, thousands separators, decimal commas
// and accounting format (parentheses for negative).
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer(
		"R$", "",
		"$", "",
		"\u20ac", "", // Euro
		"\u00a3", "", // Pound
		"\u00a0", "",
		" ", "",
	).Replace(s)
	s = normalizeSeparators(s)

	if isNegative {
		s = "-" + s
	}
	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// normalizeSeparators rewrites s so that '.' is the only decimal separator.
// With both separators present the rightmost one is the decimal mark. A lone
// comma is a decimal comma; repeated commas or dots are thousand separators.
func normalizeSeparators(s string) string {
	comma := strings.LastIndexByte(s, ',')
	dot := strings.LastIndexByte(s, '.')

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") == 1 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case dot >= 0 && strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func fromExcelSerial(f float64) (time.Time, bool) {
	if f < 1 || f > maxExcelSerial {
		return time.Time{}, false
	}
	days := math.Floor(f)
	secs := math.Round((f - days) * 86400)
	return excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
