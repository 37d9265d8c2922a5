package domain

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// Patterns are applied in priority order; the first match wins. Invoice
// numbers and CUFE codes share alphanumeric shape, so the standalone
// 32-character CUFE check runs only after the invoice-number patterns.
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b([A-Z]{2,4}\d{6,})\b`),
	regexp.MustCompile(`(?i)\b([A-Z]+-\d+)\b`),
	regexp.MustCompile(`(?i)\bfactura\s+([A-Z0-9-]+)`),
}

var cufePattern = regexp.MustCompile(`(?i)\b([A-Z0-9]{32})\b`)

// ExtractIdentifier scans free text for an invoice-like identifier (invoice
// number or CUFE) and returns the matched substring verbatim, or "" when
// nothing matches.
func ExtractIdentifier(text string) string {
	for _, pattern := range identifierPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	if m := cufePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// DeriveSessionKey maps a question to its conversation partition key.
// Questions mentioning the same identifier share a key regardless of casing
// or hyphenation; questions without one get a content-hash key.
func DeriveSessionKey(question string) string {
	if id := ExtractIdentifier(question); id != "" {
		return "invoice_" + strings.ReplaceAll(strings.ToLower(id), "-", "_")
	}
	h := fnv.New32a()
	h.Write([]byte(question))
	return fmt.Sprintf("query_%08x", h.Sum32())
}
