// Package export renders a task view as json, csv or pdf.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"tasklist/engine"
	"tasklist/model"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "pdf"}

// Export renders tasks in the given format. today drives the due-status column.
func Export(tasks []model.Task, format string, today time.Time) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		if tasks == nil {
			tasks = []model.Task{}
		}
		return json.MarshalIndent(tasks, "", "  ")
	case "csv":
		return exportCSV(tasks, today)
	case "pdf":
		return exportPDF(tasks, today)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func exportCSV(tasks []model.Task, today time.Time) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"id", "title", "completed", "priority", "due_date", "due_status", "order"})
	for _, t := range tasks {
		_ = w.Write([]string{
			t.ID,
			t.Title,
			fmt.Sprint(t.Completed),
			string(t.Priority),
			t.DueDate.String(),
			string(engine.DueStatus(t, today)),
			fmt.Sprint(t.Order),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return b.Bytes(), nil
}

func exportPDF(tasks []model.Task, today time.Time) ([]byte, error) {
	stats := engine.ComputeStats(tasks, today)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Task List")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("%s  total=%d active=%d completed=%d (%d%%)",
		today.Format("2006-01-02"), stats.Total, stats.Active, stats.Completed, stats.Percent))
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	for _, t := range tasks {
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s (%s)", box, t.Title, t.Priority)
		if !t.DueDate.IsZero() {
			line += fmt.Sprintf(" due %s", t.DueDate)
			if engine.IsOverdue(t, today) && !t.Completed {
				line += " - overdue"
			}
		}
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
