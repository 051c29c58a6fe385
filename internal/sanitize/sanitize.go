// Package sanitize derives safe, deterministic filenames from free-text
// report metadata and period-end dates.
package sanitize

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxFilenameLen = 100

var (
	nonWordRuns    = regexp.MustCompile(`[\s\W]+`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// asciiFold decomposes to NFKD, strips combining marks, and drops anything
// still outside printable ASCII.
var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Filename converts free-text report details into a safe ASCII filename stem.
// The result is non-empty, lowercase, length-bounded, and stable: the same
// input always yields the same output, and the output is a fixed point
// (Filename(Filename(x)) == Filename(x)).
func Filename(text string) string {
	folded, _, err := transform.String(asciiFold, text)
	if err != nil {
		// Transform over valid UTF-8 cannot fail; a broken input degrades
		// to byte-wise filtering below.
		folded = text
	}

	s := strings.ToLower(folded)
	s = nonWordRuns.ReplaceAllString(s, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	if len(s) > maxFilenameLen {
		cut := s[:maxFilenameLen]
		if idx := strings.LastIndex(cut, "_"); idx > 0 {
			cut = cut[:idx]
		}
		s = strings.Trim(cut, "_")
		if s == "" {
			s = "report"
		}
	}

	if s == "" {
		return "unknown_report"
	}
	return s
}

// OutputNames derives the record filename and the error-artifact filename for
// one document. A valid ISO period-end date yields DD_MM_YYYY names; anything
// else falls back to the sanitized stem of the original file. Never fails:
// an unparsable date is a warning, not an error.
func OutputNames(periodEndDate, originalFilename string) (jsonName, errName string) {
	base := ""
	if periodEndDate != "" {
		if d, err := time.Parse("2006-01-02", periodEndDate); err == nil {
			base = d.Format("02_01_2006")
		} else {
			zap.L().Warn("invalid period end date, falling back to file stem",
				zap.String("period_end_date", periodEndDate),
				zap.String("file", originalFilename),
			)
		}
	}
	if base == "" {
		stem := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
		base = Filename(stem)
	}
	return base + ".json", base + "_error.txt"
}
