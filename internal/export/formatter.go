// Package export projects a stored job result's comments into JSON, CSV, or
// plain-text documents.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"noteharvest/internal/harvest"
)

// Format identifies an export representation.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
)

// ParseFormat validates a format token. Unknown tokens are an input error,
// not a server failure.
func ParseFormat(token string) (Format, error) {
	switch Format(strings.ToLower(token)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", harvest.NewInputError(fmt.Sprintf("unsupported export format: %q", token))
	}
}

// Ext returns the filename extension for the format.
func (f Format) Ext() string {
	return string(f)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// Row is one exported comment tagged with its originating note.
type Row struct {
	NoteTitle string `json:"note_title"`
	NoteLink  string `json:"note_link"`
	Comment   string `json:"comment"`
	NoteIndex int    `json:"note_index"`
}

// Rows collects comment rows from the result. A non-nil noteIndex scopes
// the export to that record; out-of-range indexes yield zero rows rather
// than an error. With no index, every record contributes in order.
func Rows(result harvest.JobResult, noteIndex *int) []Row {
	var rows []Row
	appendNote := func(idx int, record harvest.NoteRecord) {
		for _, comment := range record.Comments {
			rows = append(rows, Row{
				NoteTitle: record.Title,
				NoteLink:  record.SourceLink,
				Comment:   comment,
				NoteIndex: idx,
			})
		}
	}
	if noteIndex != nil {
		if *noteIndex >= 0 && *noteIndex < len(result.Records) {
			appendNote(*noteIndex, result.Records[*noteIndex])
		}
		return rows
	}
	for idx, record := range result.Records {
		appendNote(idx, record)
	}
	return rows
}

// Formatter renders comment rows into a chosen representation.
type Formatter struct {
	clock harvest.Clock
}

// New constructs a Formatter using the clock for export timestamps.
func New(clock harvest.Clock) *Formatter {
	return &Formatter{clock: clock}
}

// Render produces the export document for the result, scoped by noteIndex
// when non-nil.
func (f *Formatter) Render(result harvest.JobResult, noteIndex *int, format Format) ([]byte, error) {
	rows := Rows(result, noteIndex)
	switch format {
	case FormatJSON:
		return f.renderJSON(result.Keyword, rows)
	case FormatCSV:
		return renderCSV(rows)
	case FormatText:
		return f.renderText(result.Keyword, rows), nil
	default:
		return nil, harvest.NewInputError(fmt.Sprintf("unsupported export format: %q", format))
	}
}

func (f *Formatter) renderJSON(keyword string, rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	payload := struct {
		Keyword       string `json:"keyword"`
		ExportTime    string `json:"export_time"`
		TotalComments int    `json:"total_comments"`
		Comments      []Row  `json:"comments"`
	}{
		Keyword:       keyword,
		ExportTime:    f.clock.Now().Format(time.RFC3339),
		TotalComments: len(rows),
		Comments:      rows,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

func renderCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"note_title", "note_link", "comment", "note_index"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.NoteTitle, row.NoteLink, row.Comment, fmt.Sprintf("%d", row.NoteIndex)}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *Formatter) renderText(keyword string, rows []Row) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Comment export - %s\n", keyword)
	fmt.Fprintf(&b, "Exported at: %s\n", f.clock.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total comments: %d\n", len(rows))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	// Banner repeats whenever the note changes between adjacent rows, even
	// if the same note reappears later.
	currentTitle := ""
	bannerWritten := false
	for _, row := range rows {
		if !bannerWritten || row.NoteTitle != currentTitle {
			currentTitle = row.NoteTitle
			bannerWritten = true
			fmt.Fprintf(&b, "【%s】\n", row.NoteTitle)
			fmt.Fprintf(&b, "Link: %s\n", row.NoteLink)
			b.WriteString(strings.Repeat("-", 30) + "\n")
		}
		fmt.Fprintf(&b, "• %s\n\n", row.Comment)
	}
	return []byte(b.String())
}
