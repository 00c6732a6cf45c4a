package report

import "testing"

func TestPeakRSS(t *testing.T) {
	if got := PeakRSSKB(); got <= 0 {
		t.Fatalf("PeakRSSKB() = %d, want > 0", got)
	}
}
