package main

import (
	"reflect"
	"testing"
)

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"mdxmanager", "--cli"}, true},
		{[]string{"mdxmanager", "--gui"}, false},
		{[]string{"mdxmanager", "tree", "--all"}, true},
		{[]string{"mdxmanager", "--provider", "memory", "upload", "a.md"}, true},
		{[]string{"mdxmanager", "--help"}, true},
		{[]string{"mdxmanager", "unknown"}, true},
		{[]string{"mdxmanager", "--gui", "--provider", "memory"}, false},
	}
	for _, tt := range tests {
		if got := isCLIMode(tt.args); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestStripModeFlags(t *testing.T) {
	got := stripModeFlags([]string{"--gui", "--provider", "memory", "--timing", "--cli"})
	want := []string{"--provider", "memory"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("stripModeFlags = %v, want %v", got, want)
	}
}
