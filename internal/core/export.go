package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// ExportFormat is a downloadable file format for registrations.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportXLS ExportFormat = "xls"
)

var (
	// ErrNothingToExport signals an empty registration list. It is an empty
	// state, not a failure: no file is produced.
	ErrNothingToExport = errors.New("no data to export")

	// ErrUnknownExportFormat is returned for formats other than csv and xls.
	ErrUnknownExportFormat = errors.New("unknown export format")
)

// ExportHeader is the fixed column header of every export.
var ExportHeader = []string{
	"Full Name",
	"Mobile Number",
	"Room Number",
	"Group Name",
	"Interests",
	"Software/Applications",
}

const exportFilePrefix = "creative_community_registrations"

// ParseExportFormat parses a format name from a URL or query parameter.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case ExportCSV:
		return ExportCSV, nil
	case ExportXLS, "excel", "xlsx":
		return ExportXLS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExportFormat, s)
	}
}

// ContentType returns the MIME type sent with the download.
func (f ExportFormat) ContentType() string {
	if f == ExportXLS {
		return "application/vnd.ms-excel; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// ExportFilename returns the download filename for the given day.
func ExportFilename(f ExportFormat, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", exportFilePrefix, now.Format("2006-01-02"), f)
}

// WriteExport writes regs to w in the requested format. Rows keep the input
// order. An empty list returns ErrNothingToExport without writing anything.
func WriteExport(ctx context.Context, w io.Writer, f ExportFormat, regs []Registration) error {
	if len(regs) == 0 {
		return ErrNothingToExport
	}
	switch f {
	case ExportCSV:
		return WriteCSV(w, regs)
	case ExportXLS:
		return ExportTable(regs).Render(ctx, w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExportFormat, string(f))
	}
}

// WriteCSV writes the header and one row per registration. Multi-value
// cells are joined with "; ".
func WriteCSV(w io.Writer, regs []Registration) error {
	if len(regs) == 0 {
		return ErrNothingToExport
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, reg := range regs {
		if err := cw.Write(exportRow(reg, "; ")); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportTable renders regs as a minimal HTML table that spreadsheet
// programs open directly. Multi-value cells are joined with ", ".
func ExportTable(regs []Registration) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<table border="1"><tr>`)
		for _, h := range ExportHeader {
			b.WriteString(`<th style="background-color: #4CAF50; color: white; font-weight: bold; padding: 8px;">`)
			b.WriteString(templ.EscapeString(h))
			b.WriteString(`</th>`)
		}
		b.WriteString(`</tr>`)

		for _, reg := range regs {
			b.WriteString(`<tr>`)
			for _, cell := range exportRow(reg, ", ") {
				b.WriteString(`<td style="padding: 8px;">`)
				b.WriteString(templ.EscapeString(cell))
				b.WriteString(`</td>`)
			}
			b.WriteString(`</tr>`)
		}
		b.WriteString(`</table>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func exportRow(reg Registration, sep string) []string {
	return []string{
		reg.FullName,
		reg.MobileNumber,
		reg.RoomNumber,
		reg.GroupName,
		strings.Join(reg.Interests, sep),
		strings.Join(reg.Software, sep),
	}
}
