// Package checkpoint locates the date of the last transaction already
// recorded in a ledger file. The importer resumes fetching from that date
// so repeated runs never duplicate entries.
package checkpoint

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"time"
)

var (
	datePattern    = regexp.MustCompile(`\d{4}[/-]\d{2}[/-]\d{2}`)
	commentPattern = regexp.MustCompile(`^\s*[;#*]+`)
)

// LastDate scans the ledger content for the most recent transaction date.
// The file is assumed chronological, oldest first, so the last matching
// line wins. Comment lines and hledger comment/end comment blocks are
// skipped. When no date is found def is returned. A date that does not
// parse with the given layout is an error: resuming from a guessed point
// risks duplicate or missing entries.
func LastDate(r io.Reader, layout string, def time.Time) (time.Time, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	insideComment := false
	var found string
	for scanner.Scan() {
		line := scanner.Text()
		if !insideComment && line == "comment" {
			insideComment = true
		} else if insideComment && line == "end comment" {
			insideComment = false
		}
		if insideComment || commentPattern.MatchString(line) {
			continue
		}
		if match := datePattern.FindString(line); match != "" {
			found = match
		}
	}
	if err := scanner.Err(); err != nil {
		return time.Time{}, fmt.Errorf("failed to scan ledger file: %w", err)
	}

	if found == "" {
		return def, nil
	}
	date, err := time.Parse(layout, found)
	if err != nil {
		return time.Time{}, fmt.Errorf("last ledger transaction date %q does not match date format %q: %w", found, layout, err)
	}
	return date, nil
}
