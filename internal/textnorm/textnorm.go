// Package textnorm folds free-form spreadsheet text into a comparable form.
//
// Headers typed by hand drift in case, accents and spacing ("Descrição ",
// "DESCRICAO", "descricao"). Fold removes all three so that header search and
// word matching behave the same for every variant.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips diacritics and collapses whitespace runs to a
// single space. Leading and trailing whitespace is removed.
//
// Examples:
//
//	Fold("  Descrição  do\tServiço ") == "descricao do servico"
//	Fold("TIPO   Comissão")           == "tipo comissao"
func Fold(s string) string {
	if s == "" {
		return ""
	}

	// Decompose, drop nonspacing marks (accents), recompose.
	// The chain is stateful so a fresh one is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Contains reports whether the folded form of term is a substring of the
// folded form of s. An empty term always matches.
func Contains(s, term string) bool {
	return strings.Contains(Fold(s), Fold(term))
}
