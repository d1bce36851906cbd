// Package imagestore saves uploaded product images to local disk or to
// S3-compatible object storage.
package imagestore

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"foodtracker/internal/domain"
)

// ErrInvalidFilename is returned when nothing usable is left of a filename
// after sanitising.
var ErrInvalidFilename = domain.ErrInvalidFilename

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces an uploaded filename to a safe flat ASCII name:
// accents are decomposed and dropped, path separators become spaces,
// whitespace runs become "_", remaining characters outside [A-Za-z0-9_.-]
// are removed, and leading or trailing "." and "_" are trimmed.
// It returns "" when nothing is left.
func SanitizeFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		if r == '/' || r == '\\' {
			r = ' '
		}
		b.WriteRune(r)
	}

	joined := strings.Join(strings.Fields(b.String()), "_")
	return strings.Trim(unsafeChars.ReplaceAllString(joined, ""), "._")
}
