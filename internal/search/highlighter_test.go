package search

import (
	"strings"
	"testing"
)

func TestSnippet(t *testing.T) {
	if Snippet("short", "x", 10) != "short" {
		t.Error("short string should be unchanged")
	}
	if got := Snippet("long text here", "", 4); got != "long..." {
		t.Errorf("got %s", got)
	}
	if Snippet("x", "x", 0) != "x" {
		t.Error("maxLen 0 should return as-is")
	}
	if got := Snippet("a  b\n\tc", "", 0); got != "a b c" {
		t.Errorf("whitespace should collapse, got %q", got)
	}
}

func TestSnippet_CentersOnQuery(t *testing.T) {
	content := strings.Repeat("filler ", 20) + "the Happy dog ran" + strings.Repeat(" filler", 20)
	got := Snippet(content, "happy", 30)
	if !strings.Contains(got, "Happy") {
		t.Errorf("snippet %q should contain the match", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("snippet %q should be cut on both sides", got)
	}
}

func TestSnippet_MatchNearEnd(t *testing.T) {
	content := strings.Repeat("a", 50) + "ZZ"
	got := Snippet(content, "zz", 10)
	if got != "..."+strings.Repeat("a", 8)+"ZZ" {
		t.Errorf("got %q", got)
	}
}

func TestSnippet_MultibyteSafe(t *testing.T) {
	got := Snippet("ééééééééééééé", "", 3)
	if got != "ééé..." {
		t.Errorf("got %q", got)
	}
}
