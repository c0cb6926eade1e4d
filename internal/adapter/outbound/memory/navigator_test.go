package memory

import (
	"slices"
	"testing"
)

func TestNavigator_RecordsHistory(t *testing.T) {
	n := NewNavigator("/")
	if got := n.CurrentPath(); got != "/" {
		t.Fatalf("CurrentPath() = %q, want /", got)
	}
	if len(n.History()) != 0 {
		t.Fatal("start position should not be in history")
	}

	n.Navigate("/courses")
	n.Navigate("/login")

	if got := n.CurrentPath(); got != "/login" {
		t.Errorf("CurrentPath() = %q, want /login", got)
	}
	want := []string{"/courses", "/login"}
	if got := n.History(); !slices.Equal(got, want) {
		t.Errorf("History() = %v, want %v", got, want)
	}

	h := n.History()
	h[0] = "/mutated"
	if n.History()[0] != "/courses" {
		t.Error("History() exposed internal slice")
	}
}
