package envutil

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "12")
	if got := Int("ENVUTIL_TEST_INT", 3); got != 12 {
		t.Fatalf("Int: got=%d want=12", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", "nope")
	if got := Int("ENVUTIL_TEST_INT", 3); got != 3 {
		t.Fatalf("Int fallback: got=%d want=3", got)
	}
}

func TestBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "1": true, "YES": true, "off": false, "0": false} {
		t.Setenv("ENVUTIL_TEST_BOOL", in)
		if got := Bool("ENVUTIL_TEST_BOOL", !want); got != want {
			t.Fatalf("Bool(%q): got=%v want=%v", in, got, want)
		}
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "")
	if !Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatal("Bool default not applied")
	}
}

func TestSecondsAndMillis(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_SECS", "5")
	if got := Seconds("ENVUTIL_TEST_SECS", time.Second); got != 5*time.Second {
		t.Fatalf("Seconds: got=%s", got)
	}
	t.Setenv("ENVUTIL_TEST_SECS", "-1")
	if got := Seconds("ENVUTIL_TEST_SECS", time.Second); got != time.Second {
		t.Fatalf("Seconds negative fallback: got=%s", got)
	}
	t.Setenv("ENVUTIL_TEST_MS", "250")
	if got := Millis("ENVUTIL_TEST_MS", 0); got != 250*time.Millisecond {
		t.Fatalf("Millis: got=%s", got)
	}
}
