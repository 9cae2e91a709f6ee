package models

import "testing"

func TestHistoryOptionsResolve(t *testing.T) {
	defaults := HistoryQuery{
		Container: "tenant-1",
		Name:      "nightly",
		Offset:    DefaultHistoryOffset,
		Limit:     DefaultHistoryLimit,
	}

	tests := []struct {
		name     string
		opts     *HistoryOptions
		expected HistoryQuery
	}{
		{
			name:     "nil options use defaults",
			opts:     nil,
			expected: defaults,
		},
		{
			name:     "empty options use defaults",
			opts:     &HistoryOptions{},
			expected: defaults,
		},
		{
			name:     "limit only",
			opts:     &HistoryOptions{Limit: Int(25)},
			expected: HistoryQuery{Container: "tenant-1", Name: "nightly", Offset: 0, Limit: 25},
		},
		{
			name:     "explicit zero limit wins",
			opts:     &HistoryOptions{Limit: Int(0)},
			expected: HistoryQuery{Container: "tenant-1", Name: "nightly", Offset: 0, Limit: 0},
		},
		{
			name:     "every field",
			opts:     &HistoryOptions{Container: "other", Name: "hourly", Offset: Int(30), Limit: Int(5)},
			expected: HistoryQuery{Container: "other", Name: "hourly", Offset: 30, Limit: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.opts.Resolve(defaults)
			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestHistoryRecordSucceeded(t *testing.T) {
	tests := []struct {
		record   HistoryRecord
		expected bool
	}{
		{HistoryRecord{Type: "success", StatusCode: 200}, true},
		{HistoryRecord{Type: "error", StatusCode: 200}, false},
		{HistoryRecord{StatusCode: 204}, true},
		{HistoryRecord{StatusCode: 500}, false},
	}

	for _, tt := range tests {
		if got := tt.record.Succeeded(); got != tt.expected {
			t.Errorf("%+v: expected %v, got %v", tt.record, tt.expected, got)
		}
	}
}
