package domain

import (
	"encoding/json"
	"testing"
)

func TestValidStatus(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		valid  bool
	}{
		{"to do", "To Do", true},
		{"in progress", "In Progress", true},
		{"done", "Done", true},
		{"empty", "", false},
		{"lowercase", "done", false},
		{"unknown", "Blocked", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidStatus(tt.status); got != tt.valid {
				t.Errorf("ValidStatus(%q) = %v, want %v", tt.status, got, tt.valid)
			}
		})
	}
}

func TestValidPriority(t *testing.T) {
	tests := []struct {
		name     string
		priority Priority
		valid    bool
	}{
		{"unset", "", true},
		{"low", "Low", true},
		{"urgent", "Urgent", true},
		{"lowercase", "high", false},
		{"unknown", "Critical", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidPriority(tt.priority); got != tt.valid {
				t.Errorf("ValidPriority(%q) = %v, want %v", tt.priority, got, tt.valid)
			}
		})
	}
}

func TestTaskDecodesBackendShape(t *testing.T) {
	raw := `{"_id":"t1","title":"Write docs","description":"","status":"In Progress",` +
		`"priority":"High","project":"p1","dueDate":"2025-03-01T00:00:00.000Z"}`

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if task.ID != "t1" {
		t.Errorf("ID = %q, want %q", task.ID, "t1")
	}
	if task.Status != StatusInProgress {
		t.Errorf("Status = %q, want %q", task.Status, StatusInProgress)
	}
	if task.Project != "p1" {
		t.Errorf("Project = %q, want %q", task.Project, "p1")
	}
	if task.DueDate == nil || task.DueDate.Year() != 2025 {
		t.Errorf("DueDate = %v, want 2025-03-01", task.DueDate)
	}
	if task.CreatedAt != nil {
		t.Errorf("CreatedAt = %v, want nil when absent", task.CreatedAt)
	}
}

func TestSessionAuthenticated(t *testing.T) {
	if (Session{}).Authenticated() {
		t.Error("empty session should not be authenticated")
	}
	s := Session{User: &User{ID: "1", Username: "a"}, Token: "abc"}
	if !s.Authenticated() {
		t.Error("session with user should be authenticated")
	}
}
