package timex

import "testing"

func TestSinceMs(t *testing.T) {
	if got := SinceMs(0); got != -1 {
		t.Fatalf("SinceMs(0) = %d, want -1", got)
	}
	if got := SinceMs(NowMs() - 1500); got < 1500 || got > 60_000 {
		t.Fatalf("SinceMs(now-1500) = %d", got)
	}
}
