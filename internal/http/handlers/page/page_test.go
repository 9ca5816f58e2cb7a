package page

import (
	"testing"

	"github.com/aanand-mishra/student-roster/internal/types"
)

func TestNewView(t *testing.T) {
	snap := types.Snapshot{
		Students: []types.Student{
			{ID: "a", Name: "Ana", Points: 50, Paid: true},
			{ID: "b", Name: "Bob"},
			{ID: "c", Name: "Cid"},
		},
		Summary:             types.Summary{Students: 3, Paid: 1, Pending: 2, RunningTotal: 50, PointsSum: 50},
		PendingConfirmation: "c",
		ValidationError:     true,
	}

	view := NewView(snap, []string{"hello"})

	if len(view.Rows) != 3 {
		t.Fatalf("Rows = %d, want 3", len(view.Rows))
	}
	if view.Increment != types.Increment {
		t.Errorf("Increment = %d, want %d", view.Increment, types.Increment)
	}
	if !view.ValidationError || len(view.Toasts) != 1 {
		t.Errorf("view = %+v", view)
	}

	tests := []struct {
		row        Row
		wantStatus string
		wantToggle string
	}{
		{row: view.Rows[0], wantStatus: "Paid", wantToggle: "Mark Pending"},
		{row: view.Rows[1], wantStatus: "Pending", wantToggle: "Mark Paid"},
		{row: view.Rows[2], wantStatus: "Pending", wantToggle: "Confirm change?"},
	}
	for _, tt := range tests {
		t.Run(tt.row.Name, func(t *testing.T) {
			if got := tt.row.StatusLabel(); got != tt.wantStatus {
				t.Errorf("StatusLabel() = %q, want %q", got, tt.wantStatus)
			}
			if got := tt.row.ToggleLabel(); got != tt.wantToggle {
				t.Errorf("ToggleLabel() = %q, want %q", got, tt.wantToggle)
			}
		})
	}
}
