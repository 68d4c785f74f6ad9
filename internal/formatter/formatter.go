// package formatter renders job history and progress values for people: CSV, JSON, Markdown and plain text
// exports, and human readable sizes, speeds and ETAs.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

// Format is a history export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat maps a user supplied format name to a [Format].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (expected csv, json, md or txt)", shared.ErrInvalidFlag, s)
	}
}

const timeLayout = "2006-01-02 15:04"

// ExportToCSV converts history records to CSV with a header row.
func ExportToCSV(records []models.HistoryRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Source", "Title", "Status", "Items", "Selection", "Destination", "Format", "Created", "Updated", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.SourceLocator,
			rec.Title,
			rec.Status.String(),
			strconv.Itoa(rec.ItemCount),
			selectionText(rec.ItemSelection),
			rec.Destination,
			rec.FormatSpec,
			rec.CreatedAt.Format(time.RFC3339),
			rec.UpdatedAt.Format(time.RFC3339),
			rec.ErrorDetail,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts history records to an indented JSON array.
func ExportToJSON(records []models.HistoryRecord) ([]byte, error) {
	if records == nil {
		records = []models.HistoryRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToMarkdown converts history records to a Markdown table.
func ExportToMarkdown(records []models.HistoryRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Download History\n\n")
	buf.WriteString(fmt.Sprintf("**Jobs**: %d\n\n", len(records)))

	if len(records) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| Created | Title | Status | Items | Destination |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, rec := range records {
		status := rec.Status.String()
		if rec.ErrorDetail != "" {
			status = fmt.Sprintf("%s: %s", status, rec.ErrorDetail)
		}
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			rec.CreatedAt.Format(timeLayout),
			escapeCell(rec.DisplayTitle()),
			escapeCell(status),
			itemsText(rec),
			escapeCell(rec.Destination),
		))
	}

	return buf.Bytes(), nil
}

// ExportToText converts history records to plain text, one job per line.
func ExportToText(records []models.HistoryRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Jobs: %d\n\n", len(records)))
	for i, rec := range records {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s (%s) %s\n", i+1, rec.Status, rec.DisplayTitle(), itemsText(rec), rec.CreatedAt.Format(timeLayout)))
		if rec.ErrorDetail != "" {
			buf.WriteString(fmt.Sprintf("   error: %s\n", rec.ErrorDetail))
		}
	}

	return buf.Bytes(), nil
}

// Export renders records in format.
func Export(records []models.HistoryRecord, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(records)
	case FormatJSON:
		return ExportToJSON(records)
	case FormatMarkdown:
		return ExportToMarkdown(records)
	case FormatText:
		return ExportToText(records)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
}

// Write renders records in format to w.
func Write(w io.Writer, records []models.HistoryRecord, format Format) error {
	data, err := Export(records, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// WriteExport writes records in format to path.
//
// Defaults to ytq_history.{format} in the working directory.
func WriteExport(records []models.HistoryRecord, format Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("ytq_history.%s", format)
	}

	data, err := Export(records, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate export: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func selectionText(sel string) string {
	if sel == "" {
		return "all"
	}
	return sel
}

func itemsText(rec models.HistoryRecord) string {
	if rec.ItemCount > 0 {
		return fmt.Sprintf("%d items", rec.ItemCount)
	}
	return selectionText(rec.ItemSelection) + " items"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
