package main

import (
	"io"
	"strings"
	"testing"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Connectivity", statusOK, "online", false)
	if !strings.Contains(line, "Connectivity:") || !strings.Contains(line, "[OK] online") {
		t.Fatalf("unexpected status line: %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatal("expected no color codes when colorize is off")
	}
}

func TestRenderStatusLineColorizesTag(t *testing.T) {
	line := renderStatusLine("Retrying", statusWarn, "2", true)
	want := statusStyles[statusWarn].color + "[WARN]" + ansiReset
	if !strings.Contains(line, want) {
		t.Fatalf("expected colored tag in %q", line)
	}
	if !strings.HasSuffix(line, " 2") {
		t.Fatalf("expected detail outside the colored tag, got %q", line)
	}
}

func TestRenderSectionHeaderRule(t *testing.T) {
	header := renderSectionHeader("Queue", false)
	lines := strings.Split(header, "\n")
	if len(lines) != 2 || lines[0] != "== Queue ==" {
		t.Fatalf("unexpected header: %q", header)
	}
	if lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("expected rule matching title width, got %q", lines[1])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected no colorization for non-file writer")
	}
}

func TestRenderTableIncludesRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Count"},
		[][]string{{"abc", "3"}},
		1,
	)
	if !strings.Contains(out, "abc") || !strings.Contains(out, "3") {
		t.Fatalf("expected row content in table, got %q", out)
	}
}
