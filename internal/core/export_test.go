package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"
)

func exportFixture() []Registration {
	return []Registration{
		{FullName: "Asha Verma", MobileNumber: "9123456789", RoomNumber: "B-204", GroupName: "Param",
			Interests: []string{"Sketching", "Photography"}, Software: []string{"Canva"}},
		{FullName: "Ravi <Kumar>", MobileNumber: "9876543210", RoomNumber: "A-1", GroupName: "Pulkit",
			Interests: []string{"Video Editing"}, Software: []string{"CapCut", "VN", "Blender"}},
	}
}

func TestWriteExport_Empty(t *testing.T) {
	for _, f := range []ExportFormat{ExportCSV, ExportXLS} {
		var buf bytes.Buffer
		err := WriteExport(context.Background(), &buf, f, nil)
		if !errors.Is(err, ErrNothingToExport) {
			t.Errorf("WriteExport(%s, nil) = %v, want ErrNothingToExport", f, err)
		}
		if buf.Len() != 0 {
			t.Errorf("WriteExport(%s, nil) wrote %d bytes", f, buf.Len())
		}
	}
}

func TestWriteCSV(t *testing.T) {
	regs := exportFixture()

	var buf bytes.Buffer
	if err := WriteExport(context.Background(), &buf, ExportCSV, regs); err != nil {
		t.Fatalf("WriteExport() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != len(regs)+1 {
		t.Fatalf("rows = %d, want %d", len(rows), len(regs)+1)
	}
	if strings.Join(rows[0], "|") != strings.Join(ExportHeader, "|") {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "Asha Verma" || rows[2][0] != "Ravi <Kumar>" {
		t.Errorf("row order not preserved: %v, %v", rows[1][0], rows[2][0])
	}
	if rows[1][4] != "Sketching; Photography" {
		t.Errorf("interests cell = %q", rows[1][4])
	}
	if rows[2][5] != "CapCut; VN; Blender" {
		t.Errorf("software cell = %q", rows[2][5])
	}
}

func TestExportTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExport(context.Background(), &buf, ExportXLS, exportFixture()); err != nil {
		t.Fatalf("WriteExport() error = %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, `<table border="1">`) || !strings.HasSuffix(out, `</table>`) {
		t.Errorf("output is not a bare table: %.60s", out)
	}
	if got := strings.Count(out, "<tr>"); got != 3 {
		t.Errorf("<tr> count = %d, want 3", got)
	}
	if got := strings.Count(out, "<th "); got != len(ExportHeader) {
		t.Errorf("<th> count = %d, want %d", got, len(ExportHeader))
	}
	if !strings.Contains(out, "Ravi &lt;Kumar&gt;") {
		t.Error("cell content not escaped")
	}
	if !strings.Contains(out, "Sketching, Photography") {
		t.Error("multi-value cell not joined with \", \"")
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"csv", ExportCSV, false},
		{"CSV", ExportCSV, false},
		{"xls", ExportXLS, false},
		{"excel", ExportXLS, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseExportFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExportFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownExportFormat) {
			t.Errorf("ParseExportFormat(%q) error = %v, want ErrUnknownExportFormat", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportFilename(t *testing.T) {
	day := time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC)
	if got := ExportFilename(ExportCSV, day); got != "creative_community_registrations_2024-03-09.csv" {
		t.Errorf("ExportFilename(csv) = %q", got)
	}
	if got := ExportFilename(ExportXLS, day); got != "creative_community_registrations_2024-03-09.xls" {
		t.Errorf("ExportFilename(xls) = %q", got)
	}
}
