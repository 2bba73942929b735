// Package cookies implements the CookieStore (spec.md §3 CookieJar, §4.2):
// a Netscape-format cookie file plus a JSON side-car token cache, both
// written atomically (write-to-temp-then-rename) via
// github.com/google/renameio/v2, the same dependency the teacher uses for
// atomic config writes.
package cookies

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Cookie is one Netscape cookie-jar row.
type Cookie struct {
	Domain       string
	IncludeSub   bool
	Path         string
	Secure       bool
	Expiry       int64
	Name         string
	Value        string
}

// ParseNetscapeFile reads a Netscape-format cookie file. Blank lines, lines
// starting with "#" (the standard header included) and lines without
// exactly seven tab-separated fields are skipped.
func ParseNetscapeFile(path string) ([]Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cookies: open %s: %w", path, err)
	}
	defer f.Close()

	var out []Cookie
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}
		expiry, _ := strconv.ParseInt(fields[4], 10, 64)
		out = append(out, Cookie{
			Domain:     fields[0],
			IncludeSub: fields[1] == "TRUE",
			Path:       fields[2],
			Secure:     fields[3] == "TRUE",
			Expiry:     expiry,
			Name:       fields[5],
			Value:      fields[6],
		})
	}
	return out, scanner.Err()
}

// FormatNetscapeFile serializes cookies back into Netscape format, with the
// standard header comment line.
func FormatNetscapeFile(cookies []Cookie) []byte {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, c := range cookies {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.Domain, boolStr(c.IncludeSub), c.Path, boolStr(c.Secure), c.Expiry, c.Name, c.Value)
	}
	return []byte(b.String())
}

func boolStr(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// Upsert replaces the cookie with the same name and domain (or appends it) while
// preserving every other entry, for the in-place line rewrite spec.md §4.2
// describes for token refresh.
func Upsert(cookies []Cookie, updated Cookie) []Cookie {
	for i, c := range cookies {
		if c.Name == updated.Name && c.Domain == updated.Domain {
			cookies[i] = updated
			return cookies
		}
	}
	return append(cookies, updated)
}

// Get returns the cookie named name, if present.
func Get(cookies []Cookie, name string) (Cookie, bool) {
	for _, c := range cookies {
		if c.Name == name {
			return c, true
		}
	}
	return Cookie{}, false
}
