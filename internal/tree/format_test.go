package tree

import (
	"strings"
	"testing"
)

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1, "1.0 B"},
		{512, "512.0 B"},
		{1023, "1023.0 B"},
		{1024, "1.0 KB"},
		{2048, "2.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
		{3 * 1024 * 1024 * 1024 * 1024, "3.0 TB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.in); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-06-18T12:34:56Z", "2024-06-18 12:34"},
		{"2024-06-18T12:34:56.789+02:00", "2024-06-18 12:34"},
		{"2024-06-18T12:34:56.123456", "2024-06-18 12:34"},
		{"2024-06-18", "2024-06-18 00:00"},
		{"notadate", "notadate"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if !strings.HasPrefix(FormatDate("2024-06-18T12:34:56Z"), "2024-06-18") {
		t.Error("formatted date should start with the calendar date")
	}
}
