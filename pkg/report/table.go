// Package report renders resolution outcomes and catalogs for people: aligned
// terminal tables and a Markdown run report.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/resolve"
)

// MaxCellWidth caps the display width of free-text cells such as errors.
const MaxCellWidth = 60

const (
	statusResolved   = "resolved"
	statusUnresolved = "unresolved"
	statusInvalid    = "invalid"
	statusValid      = "valid"
)

// Title returns s with its first letter upper-cased, e.g. "scrape" -> "Scrape".
func Title(s string) string {
	return cases.Title(language.Und).String(s)
}

// Table writes one aligned row per outcome.
func Table(w io.Writer, outcomes []resolve.Outcome) error {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, outcomeRow(o))
	}
	return writeTable(w, []string{"NAME", "MODE", "STATUS", "VERSION", "DETAIL"}, rows)
}

func outcomeRow(o resolve.Outcome) []string {
	if !o.OK() {
		reason := "no record"
		if o.Err != nil {
			reason = o.Err.Error()
		}
		return []string{o.Name, Title(o.Mode.String()), Title(statusUnresolved), "", reason}
	}
	rec := o.Record
	detail := "no hash"
	if rec.HasHash() {
		detail = string(rec.HashType)
	}
	if rec.HasSize {
		detail += ", " + HumanSize(rec.Size)
	}
	return []string{o.Name, Title(o.Mode.String()), Title(statusResolved), rec.Version, detail}
}

// CatalogTable writes one row per catalog entry with its mode and whether the
// entry passed validation.
func CatalogTable(w io.Writer, cat *catalog.Catalog) error {
	rows := make([][]string, 0, len(cat.Entries))
	for _, e := range cat.Entries {
		status, detail := statusValid, ""
		if !e.Valid() {
			status = statusInvalid
			if e.Err != nil {
				detail = e.Err.Error()
			}
		} else if len(e.Warnings) > 0 {
			detail = strings.Join(e.Warnings, "; ")
		}
		rows = append(rows, []string{e.Name, Title(e.Mode().String()), Title(status), detail})
	}
	return writeTable(w, []string{"NAME", "MODE", "STATUS", "DETAIL"}, rows)
}

// writeTable pads every column to its widest cell, measured in terminal
// cells rather than bytes. The last column is never padded.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	measure := func(cells []string) {
		for i, c := range cells {
			if cw := runewidth.StringWidth(c); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for _, row := range rows {
		for i := range row {
			row[i] = runewidth.Truncate(oneLine(row[i]), MaxCellWidth, "...")
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}

	var errs []error
	line := func(cells []string) {
		var sb strings.Builder
		for i, c := range cells {
			if i == len(cells)-1 {
				sb.WriteString(c)
				break
			}
			sb.WriteString(runewidth.FillRight(c, widths[i]))
			sb.WriteString("  ")
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")); err != nil {
			errs = append(errs, err)
		}
	}

	line(header)
	for _, row := range rows {
		line(row)
	}
	return errors.Join(errs...)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HumanSize formats a byte count with binary units, e.g. 4031222272 -> "3.8 GiB".
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for q := n / unit; q >= unit; q /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
