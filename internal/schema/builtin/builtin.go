// Package builtin registers the layouts shipped with sheetcheck.
// Import it for its side effects.
package builtin
