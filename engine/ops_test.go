package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"tasklist/model"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func strictOpts() AddOptions {
	return AddOptions{Strictness: StrictnessStrict, Now: testNow}
}

func sample() []model.Task {
	return []model.Task{
		{ID: "a", Title: "Alpha", Priority: model.PriorityLow, Order: 1},
		{ID: "b", Title: "Bravo", Priority: model.PriorityHigh, Completed: true, Order: 2},
		{ID: "c", Title: "Charlie", Priority: model.PriorityMedium, Order: 3},
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestAdd_BuyMilk(t *testing.T) {
	got, task, err := Add(nil, NewTaskInput{Title: "Buy milk", Priority: model.PriorityHigh}, strictOpts())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Title != "Buy milk" || got[0].Priority != model.PriorityHigh || got[0].Completed {
		t.Errorf("task = %+v, want Buy milk/high/not completed", got[0])
	}
	if task.Order != 1 {
		t.Errorf("Order = %d, want 1", task.Order)
	}
	if task.CreatedAt != testNow.UnixMilli() {
		t.Errorf("CreatedAt = %d, want %d", task.CreatedAt, testNow.UnixMilli())
	}
}

func TestAdd_AppendsWithNextOrder(t *testing.T) {
	existing := sample()
	before := append([]model.Task(nil), existing...)

	got, task, err := Add(existing, NewTaskInput{Title: "  Delta  "}, strictOpts())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(got) != len(existing)+1 {
		t.Fatalf("len = %d, want %d", len(got), len(existing)+1)
	}
	if got[len(got)-1].ID != task.ID {
		t.Error("new task should be appended at the end")
	}
	if task.Title != "Delta" {
		t.Errorf("Title = %q, want trimmed Delta", task.Title)
	}
	if task.Order != 4 {
		t.Errorf("Order = %d, want 4", task.Order)
	}
	if task.Priority != model.PriorityMedium {
		t.Errorf("Priority = %q, want medium default", task.Priority)
	}
	if !reflect.DeepEqual(existing, before) {
		t.Error("Add mutated its input")
	}
}

func TestAdd_Rejections(t *testing.T) {
	existing := sample()
	tests := []struct {
		name   string
		title  string
		reason string
	}{
		{"empty", "", ReasonTitleRequired},
		{"whitespace", "   ", ReasonTitleRequired},
		{"too short", " ab ", ReasonTooShort},
		{"too long", strings.Repeat("x", 51), ReasonTooLong},
		{"duplicate", "alpha", ReasonDuplicate},
		{"duplicate padded", "  BRAVO ", ReasonDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Add(existing, NewTaskInput{Title: tt.title}, strictOpts())
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", ve.Reason, tt.reason)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("errors.Is(err, ErrValidation) = false")
			}
			if !reflect.DeepEqual(got, existing) {
				t.Error("collection changed on rejection")
			}
		})
	}
}

func TestAdd_LengthBoundaries(t *testing.T) {
	for _, title := range []string{"abc", strings.Repeat("y", 50), "日本語"} {
		if _, _, err := Add(nil, NewTaskInput{Title: title}, strictOpts()); err != nil {
			t.Errorf("Add(%q): %v", title, err)
		}
	}
}

func TestAdd_Minimal(t *testing.T) {
	opts := AddOptions{Strictness: StrictnessMinimal, Now: testNow}
	got, _, err := Add(sample(), NewTaskInput{Title: "a"}, opts)
	if err != nil {
		t.Fatalf("minimal Add short title: %v", err)
	}
	if _, _, err := Add(got, NewTaskInput{Title: "alpha"}, opts); err != nil {
		t.Fatalf("minimal Add duplicate: %v", err)
	}
	if _, _, err := Add(got, NewTaskInput{Title: " "}, opts); err == nil {
		t.Fatal("minimal Add should still reject empty title")
	}
}

func TestToggle_SelfInverse(t *testing.T) {
	l := sample()
	once, task, err := Toggle(l, "a")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !task.Completed {
		t.Error("toggled task should be completed")
	}
	if task.Priority != model.PriorityLow {
		t.Error("toggle changed priority")
	}
	twice, _, err := Toggle(once, "a")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !reflect.DeepEqual(twice, l) {
		t.Errorf("toggle twice = %+v, want %+v", twice, l)
	}
	if l[0].Completed {
		t.Error("Toggle mutated its input")
	}
}

func TestToggle_NotFound(t *testing.T) {
	l := sample()
	got, _, err := Toggle(l, "zzz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !reflect.DeepEqual(got, l) {
		t.Error("collection changed")
	}
}

func TestEdit(t *testing.T) {
	l := sample()
	got, changed, err := Edit(l, "c", "  Charlie two ")
	if err != nil || !changed {
		t.Fatalf("Edit = %v, %v", changed, err)
	}
	if got[2].Title != "Charlie two" {
		t.Errorf("Title = %q, want Charlie two", got[2].Title)
	}
	if got[2].Priority != l[2].Priority || got[2].Order != l[2].Order {
		t.Error("Edit changed fields other than title")
	}

	same, changed, err := Edit(l, "c", "   ")
	if err != nil || changed {
		t.Fatalf("empty Edit = %v, %v; want false, nil", changed, err)
	}
	if same[2].Title != "Charlie" {
		t.Errorf("Title = %q, want original retained", same[2].Title)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	once, removed := Delete(sample(), "b")
	if !removed || len(once) != 2 {
		t.Fatalf("Delete = %v, len %d", removed, len(once))
	}
	twice, removed := Delete(once, "b")
	if removed {
		t.Error("second delete should be a no-op")
	}
	if !reflect.DeepEqual(once, twice) {
		t.Error("second delete changed the collection")
	}
}

func TestClearCompleted(t *testing.T) {
	l := []model.Task{{ID: "1", Completed: true}, {ID: "2", Completed: false}}
	got, n := ClearCompleted(l)
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if !reflect.DeepEqual(ids(got), []string{"2"}) {
		t.Errorf("ids = %v, want [2]", ids(got))
	}
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name          string
		moved, target string
		want          []string
	}{
		{"down", "a", "c", []string{"b", "c", "a"}},
		{"up", "c", "a", []string{"c", "a", "b"}},
		{"adjacent", "a", "b", []string{"b", "a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, moved := Reorder(sample(), tt.moved, tt.target)
			if !moved {
				t.Fatal("Reorder reported no move")
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("ids = %v, want %v", ids(got), tt.want)
			}
			for i, task := range got {
				if task.Order != i+1 {
					t.Errorf("task %s order = %d, want %d", task.ID, task.Order, i+1)
				}
			}
		})
	}
}

func TestReorder_NoOp(t *testing.T) {
	l := sample()
	for _, pair := range [][2]string{{"a", "a"}, {"a", "zzz"}, {"zzz", "a"}} {
		got, moved := Reorder(l, pair[0], pair[1])
		if moved {
			t.Errorf("Reorder(%s, %s) moved", pair[0], pair[1])
		}
		if !reflect.DeepEqual(got, l) {
			t.Errorf("Reorder(%s, %s) changed collection", pair[0], pair[1])
		}
	}
}

func TestReorder_RoundTripRestoresRelativeOrder(t *testing.T) {
	l := append(sample(), model.Task{ID: "d", Title: "Delta", Order: 4})
	pos := func(tasks []model.Task, id string) int { return indexOf(tasks, id) }

	for _, a := range ids(l) {
		for _, b := range ids(l) {
			if a == b {
				continue
			}
			first, _ := Reorder(l, a, b)
			second, _ := Reorder(first, b, a)
			if (pos(l, a) < pos(l, b)) != (pos(second, a) < pos(second, b)) {
				t.Errorf("reorder(%s,%s) then reorder(%s,%s): relative order not restored: %v", a, b, b, a, ids(second))
			}
		}
	}
}
