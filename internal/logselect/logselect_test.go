package logselect

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

// numbered builds n lines "line-000".."line-n" so output can be mapped back
// to input indices.
func numbered(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line-%03d", i)
	}
	return lines
}

func indexOf(t *testing.T, lines []string, s string) int {
	t.Helper()
	for i, l := range lines {
		if l == s {
			return i
		}
	}
	t.Fatalf("line %q not in input", s)
	return -1
}

func TestSelect_Empty(t *testing.T) {
	got := Select(nil, 100)
	if got == nil || len(got) != 0 {
		t.Errorf("Select(nil) = %v, want empty non-nil slice", got)
	}
}

func TestSelect_ShortInputKeptWhole(t *testing.T) {
	lines := numbered(10)
	got := Select(lines, 100000)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	for i := range got {
		if got[i] != lines[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], lines[i])
		}
	}
}

func TestSelect_KeywordWindowWithAnchors(t *testing.T) {
	lines := numbered(40)
	lines[20] = "line-020 ERROR payment gateway refused"

	got := Select(lines, 100000)

	want := map[int]bool{}
	for i := 0; i <= 14; i++ {
		want[i] = true
	}
	for i := 15; i <= 23; i++ {
		want[i] = true
	}
	for i := 25; i <= 39; i++ {
		want[i] = true
	}
	if len(got) != len(want) {
		t.Fatalf("kept %d lines, want %d", len(got), len(want))
	}
	for _, l := range got {
		if !want[indexOf(t, lines, l)] {
			t.Errorf("unexpected line kept: %q", l)
		}
	}
	for _, l := range got {
		if l == lines[24] {
			t.Error("line 24 kept; it is outside the keyword window and the tail")
		}
	}
}

func TestSelect_NoKeywordsKeepsOnlyAnchors(t *testing.T) {
	lines := numbered(100)
	got := Select(lines, 100000)
	if len(got) != 30 {
		t.Fatalf("kept %d lines, want 30", len(got))
	}
	if got[14] != lines[14] || got[15] != lines[85] {
		t.Errorf("anchor boundary = %q, %q; want %q, %q", got[14], got[15], lines[14], lines[85])
	}
}

func TestSelect_WindowClippedAtBounds(t *testing.T) {
	lines := numbered(60)
	lines[58] = "line-058 FATAL out of memory"
	lines[2] = "line-002 rollback started"
	got := Select(lines, 100000)
	// head 0..14, tail 45..59; both windows fall inside the anchors.
	if len(got) != 30 {
		t.Errorf("kept %d lines, want 30", len(got))
	}
}

func TestSelect_CaseSensitiveKeywords(t *testing.T) {
	lines := numbered(80)
	lines[40] = "line-040 Error mixed case is not a keyword"
	lines[50] = "line-050 request timeout after 3000ms"
	got := Select(lines, 100000)
	for _, l := range got {
		i := indexOf(t, lines, l)
		if i >= 35 && i <= 43 {
			t.Errorf("line %d kept by a mixed-case 'Error'", i)
		}
	}
	found := false
	for _, l := range got {
		if l == lines[45] {
			found = true
		}
	}
	if !found {
		t.Error("line 45 (5 before 'timeout') not kept")
	}
}

func TestSelect_HardStopAtBudget(t *testing.T) {
	lines := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40), // would exceed 100
		"d",                     // short, but after the cutoff
	}
	got := Select(lines, 100)
	if len(got) != 2 {
		t.Fatalf("kept %d lines, want 2: %v", len(got), got)
	}
	if got[1] != lines[1] {
		t.Errorf("got[1] = %q, want %q", got[1], lines[1])
	}
}

func TestSelect_EmptyLinesSkipped(t *testing.T) {
	lines := []string{"", "ERROR boom", "", "ok"}
	got := Select(lines, 1000)
	if len(got) != 2 || got[0] != "ERROR boom" || got[1] != "ok" {
		t.Errorf("Select = %v, want [ERROR boom ok]", got)
	}
}

func TestSelectWith_Stats(t *testing.T) {
	lines := numbered(40)
	lines[20] = "line-020 WARN retrying"
	_, stats := SelectWith(lines, DefaultOptions(50))
	if stats.Total != 40 {
		t.Errorf("Total = %d, want 40", stats.Total)
	}
	if stats.Marked != 39 {
		t.Errorf("Marked = %d, want 39", stats.Marked)
	}
	if !stats.Truncated {
		t.Error("Truncated = false, want true")
	}
	if stats.Chars > 50 {
		t.Errorf("Chars = %d, exceeds budget 50", stats.Chars)
	}
}

func TestSelectWith_CustomWindow(t *testing.T) {
	lines := numbered(100)
	lines[50] = "line-050 ERROR"
	got, _ := SelectWith(lines, Options{Head: 1, Tail: 1, Before: 1, After: 1, MaxChars: 10000})
	want := []string{lines[0], lines[49], lines[50], lines[51], lines[99]}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSelect_NonPositiveBudgetKeepsNothing(t *testing.T) {
	lines := []string{"ERROR a", "b", "c"}
	for _, budget := range []int{0, -1, -10000} {
		got, stats := SelectWith(lines, DefaultOptions(budget))
		if len(got) != 0 {
			t.Errorf("budget %d: Select = %v, want none", budget, got)
		}
		if !stats.Truncated || stats.Chars != 0 {
			t.Errorf("budget %d: stats = %+v, want truncated with 0 chars", budget, stats)
		}
		if got := Select(lines, budget); len(got) != 0 {
			t.Errorf("budget %d: Select = %v, want none", budget, got)
		}
	}
}

func TestSelectWith_ZeroWindows(t *testing.T) {
	lines := numbered(40)
	lines[20] = "line-020 ERROR"

	opts := DefaultOptions(10000)
	opts.Head, opts.After = 0, 0
	got, _ := SelectWith(lines, opts)
	want := append([]string{}, lines[15:21]...)
	want = append(want, lines[25:]...)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	only, _ := SelectWith(lines, Options{MaxChars: 10000})
	if len(only) != 1 || only[0] != lines[20] {
		t.Errorf("zero windows = %v, want only the keyword line", only)
	}
}

// Output is always an increasing-index subsequence within budget.
func TestSelect_SubsequenceProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"INFO ok", "ERROR db down", "debug", "WARN slow", "", "failed to commit", "step"}
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(120)
		lines := make([]string, n)
		for i := range lines {
			lines[i] = fmt.Sprintf("%04d %s %s", i, words[rng.Intn(len(words))], strings.Repeat("x", rng.Intn(80)))
		}
		budget := rng.Intn(3010) - 10
		got := Select(lines, budget)

		total := 0
		last := -1
		for _, l := range got {
			idx := indexOf(t, lines, l)
			if idx <= last {
				t.Fatalf("iter %d: index %d after %d; order not preserved", iter, idx, last)
			}
			last = idx
			total += len(l)
		}
		if total > max(budget, 0) {
			t.Fatalf("iter %d: total chars %d exceeds budget %d", iter, total, budget)
		}
	}
}
