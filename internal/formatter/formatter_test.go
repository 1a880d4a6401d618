package formatter

import (
	"encoding/csv"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
	th "github.com/desertthunder/persona/internal/testing"
)

func testPersonas() []models.Persona {
	return []models.Persona{
		{
			ID:             "42",
			Prompt:         "Cinematic shot of a bag,\nslow motion",
			Status:         models.JobCompleted,
			Title:          "Bag",
			ResultVideoURL: "https://cdn.example.com/v.mp4",
			Price:          120,
			Currency:       "USD",
			Likes:          6,
			CreatedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{ID: "43", Prompt: "a cat", Status: models.JobProcessing},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"Markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"", FormatText, false},
		{"text", FormatText, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if tt.wantErr && !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV(testPersonas())
	if err != nil {
		t.Fatalf("failed to export CSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "ID" || records[1][0] != "42" {
		t.Errorf("unexpected records %v", records)
	}
	if records[1][3] != "Cinematic shot of a bag,\nslow motion" {
		t.Errorf("expected prompt preserved through quoting, got %q", records[1][3])
	}
	if records[1][6] != "2025-03-01T12:00:00Z" || records[2][6] != "" {
		t.Errorf("unexpected created column %q %q", records[1][6], records[2][6])
	}
}

func TestExportToMarkdown(t *testing.T) {
	data, err := ExportToMarkdown("Gallery", testPersonas())
	if err != nil {
		t.Fatalf("failed to export Markdown: %v", err)
	}

	out := string(data)
	for _, want := range []string{
		"# Gallery",
		"**Personas**: 2",
		"## 1. Bag",
		"## 2. a cat",
		"[watch](https://cdn.example.com/v.mp4)",
		"**Price**: 120.00 USD",
		"> Cinematic shot of a bag,\n> slow motion",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected markdown to contain %q", want)
		}
	}
}

func TestExportToText(t *testing.T) {
	data, err := ExportToText(testPersonas())
	if err != nil {
		t.Fatalf("failed to export text: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[2], "1. [completed] 42") || !strings.HasSuffix(lines[2], "(https://cdn.example.com/v.mp4)") {
		t.Errorf("unexpected line %q", lines[2])
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("Writes File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")

		got, err := WriteExport(FormatCSV, testPersonas(), path)
		if err != nil {
			t.Fatalf("failed to write export: %v", err)
		}
		th.AssertFileExists(t, got)
		if !strings.HasPrefix(th.MustReadFile(t, got), "ID,Status") {
			t.Error("expected CSV header")
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := WriteExport(Format("xml"), nil, filepath.Join(t.TempDir(), "x")); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("Unwritable Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "dir", "out.txt")
		if _, err := WriteExport(FormatText, nil, path); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}
