// package formatter exports a persona gallery to CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/persona/internal/models"
	"github.com/desertthunder/persona/internal/shared"
)

// Format is an export format name as accepted by --format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat accepts csv, md/markdown and txt/text, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want csv, md or txt)", shared.ErrInvalidArgument, name)
	}
}

// Export renders personas in the given format.
func Export(format Format, personas []models.Persona) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(personas)
	case FormatMarkdown:
		return ExportToMarkdown("Gallery", personas)
	case FormatText:
		return ExportToText(personas)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts personas to CSV with columns: ID, Status, Title, Prompt, Video, Likes, Created
func ExportToCSV(personas []models.Persona) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Status", "Title", "Prompt", "Video", "Likes", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range personas {
		record := []string{
			p.ID,
			string(p.Status),
			p.Title,
			p.Prompt,
			p.ResultVideoURL,
			strconv.Itoa(p.Likes),
			formatTime(p.CreatedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts personas to a Markdown document with one section per persona
func ExportToMarkdown(title string, personas []models.Persona) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Personas**: %d\n\n", len(personas))

	for i, p := range personas {
		heading := p.Title
		if heading == "" {
			heading = shared.Truncate(strings.Join(strings.Fields(p.Prompt), " "), 60)
		}
		fmt.Fprintf(&buf, "## %d. %s\n\n", i+1, heading)
		fmt.Fprintf(&buf, "- **ID**: `%s`\n", p.ID)
		fmt.Fprintf(&buf, "- **Status**: %s\n", p.Status)
		if p.ResultVideoURL != "" {
			fmt.Fprintf(&buf, "- **Video**: [watch](%s)\n", p.ResultVideoURL)
		}
		if p.SourceImageURL != "" {
			fmt.Fprintf(&buf, "- **Source**: ![source](%s)\n", p.SourceImageURL)
		}
		if p.Price > 0 {
			fmt.Fprintf(&buf, "- **Price**: %.2f %s\n", p.Price, p.Currency)
		}
		fmt.Fprintf(&buf, "- **Likes**: %d\n\n", p.Likes)
		if p.Prompt != "" {
			fmt.Fprintf(&buf, "> %s\n\n", strings.ReplaceAll(p.Prompt, "\n", "\n> "))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts personas to plain text, one line each
func ExportToText(personas []models.Persona) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Personas: %d\n\n", len(personas))
	for i, p := range personas {
		line := fmt.Sprintf("%d. [%s] %s - %s", i+1, p.Status, p.ID, shared.Truncate(strings.Join(strings.Fields(p.Prompt), " "), 60))
		if p.ResultVideoURL != "" {
			line += " (" + p.ResultVideoURL + ")"
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// WriteExport renders personas and writes them to path.
//
// An empty path defaults to gallery.<format>.
func WriteExport(format Format, personas []models.Persona, path string) (string, error) {
	if path == "" {
		path = "gallery." + string(format)
	}

	data, err := Export(format, personas)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
