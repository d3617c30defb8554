package env

import "testing"

func TestLookupReturnsFirstNonBlank(t *testing.T) {
	t.Setenv("DAILYDEV_A", "  ")
	t.Setenv("DAILYDEV_B", "worker-2")

	got, ok := Lookup("DAILYDEV_MISSING", "DAILYDEV_A", "DAILYDEV_B")
	if !ok || got != "worker-2" {
		t.Fatalf("expected worker-2, got %q (ok=%v)", got, ok)
	}
	if _, ok := Lookup("DAILYDEV_MISSING"); ok {
		t.Fatalf("expected no value")
	}
}

func TestListenAddr(t *testing.T) {
	t.Setenv("PORT", "")
	if got := ListenAddr("8080"); got != ":8080" {
		t.Fatalf("expected :8080, got %s", got)
	}

	t.Setenv("PORT", "5000")
	if got := ListenAddr("8080"); got != ":5000" {
		t.Fatalf("expected PORT to win, got %s", got)
	}

	t.Setenv("PORT", "127.0.0.1:9000")
	if got := ListenAddr("8080"); got != "127.0.0.1:9000" {
		t.Fatalf("expected host:port untouched, got %s", got)
	}
}
