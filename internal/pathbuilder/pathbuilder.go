// Package pathbuilder implements PathBuilder (spec.md §4.10): expands a
// filename/folder template against a metadata map, sanitizes the result
// for the local filesystem, and resolves naming collisions.
package pathbuilder

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

var fieldSegment = regexp.MustCompile(`\{(\w+)\}`)

var whitespaceRun = regexp.MustCompile(`\s+`)

var reservedNames = func() map[string]struct{} {
	m := map[string]struct{}{"CON": {}, "PRN": {}, "AUX": {}, "NUL": {}}
	for i := 1; i <= 9; i++ {
		m[fmt.Sprintf("COM%d", i)] = struct{}{}
		m[fmt.Sprintf("LPT%d", i)] = struct{}{}
	}
	return m
}()

// Expand substitutes every {field} placeholder in template with the
// corresponding value from meta, eliding the connector (space, hyphen,
// dot, underscore) around any field left empty, and collapsing the
// surviving whitespace runs into single spaces (spec.md §4.10).
func Expand(template string, meta map[string]string) string {
	result := template
	for _, field := range fieldsIn(template) {
		if meta[field] != "" || field == "title" {
			continue
		}
		result = removeFieldSegment(result, field)
	}

	result = fieldSegment.ReplaceAllStringFunc(result, func(m string) string {
		field := m[1 : len(m)-1]
		return meta[field]
	})
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(result), " ")
}

func fieldsIn(template string) []string {
	matches := fieldSegment.FindAllStringSubmatch(template, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// removeFieldSegment strips the placeholder along with any adjacent
// connector characters (whitespace, "-", ".", "_") so that an empty field
// doesn't leave a dangling separator behind.
func removeFieldSegment(template, field string) string {
	pattern := regexp.MustCompile(`[\s\-._]*\{` + regexp.QuoteMeta(field) + `\}[\s\-._]*`)
	return pattern.ReplaceAllString(template, " ")
}

// Sanitize normalizes name to NFC, strips characters illegal on common
// filesystems plus control characters, and renames reserved Windows
// device names by prefixing an underscore (spec.md §4.10).
func Sanitize(name string) string {
	name = norm.NFC.String(name)
	name = invalidChars.ReplaceAllString(name, "")

	if name == "" {
		return "_empty_file"
	}

	base, _, _ := strings.Cut(name, ".")
	if _, reserved := reservedNames[strings.ToUpper(base)]; reserved {
		name = "_" + name
	}
	return name
}

// Unique appends " (N)" with the smallest N >= 1 that doesn't collide
// with an existing path on disk, returning candidate unmodified if it's
// already free (spec.md §4.10).
func Unique(dir, candidate string) string {
	path := filepath.Join(dir, candidate)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return candidate
	}

	ext := filepath.Ext(candidate)
	base := strings.TrimSuffix(candidate, ext)
	for n := 1; ; n++ {
		next := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, err := os.Stat(filepath.Join(dir, next)); os.IsNotExist(err) {
			return next
		}
	}
}

// BuildFilename expands a template, sanitizes the result, and makes it
// unique within dir (spec.md §4.10's end-to-end path for a media file).
func BuildFilename(dir, template string, meta map[string]string) string {
	name := Sanitize(Expand(template, meta))
	return Unique(dir, name)
}
