package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"tasklist/model"
)

var today = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func fixture() []model.Task {
	due, _ := model.ParseDate("2024-05-01")
	return []model.Task{
		{ID: "a", Title: "Pay rent", Priority: model.PriorityHigh, DueDate: due, Order: 1},
		{ID: "b", Title: "Water plants, twice", Priority: model.PriorityLow, Completed: true, Order: 2},
	}
}

func TestExportJSON(t *testing.T) {
	data, err := Export(fixture(), "JSON", today)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var got []model.Task
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Pay rent" {
		t.Errorf("got %+v", got)
	}

	empty, err := Export(nil, "json", today)
	if err != nil || string(empty) != "[]" {
		t.Errorf("empty export = %q, %v", empty, err)
	}
}

func TestExportCSV(t *testing.T) {
	data, err := Export(fixture(), "csv", today)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[1][5] != "overdue" {
		t.Errorf("due_status = %q, want overdue", rows[1][5])
	}
	if rows[2][1] != "Water plants, twice" || rows[2][5] != "none" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestExportPDF(t *testing.T) {
	data, err := Export(fixture(), "pdf", today)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not look like a pdf: %q", data[:8])
	}
}

func TestExportUnknown(t *testing.T) {
	if _, err := Export(fixture(), "xlsx", today); err == nil {
		t.Error("expected error for unknown format")
	}
}
