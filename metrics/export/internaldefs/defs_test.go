package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/dashauth"
)

func TestFamiliesCoverEveryCounterOnce(t *testing.T) {
	names := map[string]bool{}
	ids := map[dashauth.MetricID]bool{}
	for _, f := range Families {
		if !strings.HasPrefix(f.Name, "dashauth_") || !strings.HasSuffix(f.Name, "_total") {
			t.Fatalf("bad family name %q", f.Name)
		}
		if names[f.Name] {
			t.Fatalf("duplicate family %q", f.Name)
		}
		names[f.Name] = true
		for _, s := range f.Series {
			if ids[s.ID] {
				t.Fatalf("metric %d listed twice", s.ID)
			}
			ids[s.ID] = true
		}
	}
	if ids[dashauth.MetricLoginLatency] {
		t.Fatal("histogram id listed as a counter")
	}
	if len(ids) != int(dashauth.MetricLoginLatency) {
		t.Fatalf("families cover %d counters, engine has %d", len(ids), dashauth.MetricLoginLatency)
	}
}

func TestLatencyBoundsInSeconds(t *testing.T) {
	bounds := LatencyBounds()
	if len(bounds) != 7 || bounds[0] != 0.005 || bounds[len(bounds)-1] != 0.5 {
		t.Fatalf("unexpected bounds %v", bounds)
	}
	if got := FormatBound(bounds[2]); got != "0.025" {
		t.Fatalf("FormatBound = %q", got)
	}
}

func TestCumulative(t *testing.T) {
	got := Cumulative([]uint64{1, 2, 3})
	want := []uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if len(got) != len(want) {
		t.Fatalf("Cumulative = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Cumulative = %v, want %v", got, want)
		}
	}
	if got := Cumulative(nil); got[len(got)-1] != 0 {
		t.Fatalf("empty histogram total = %d", got[len(got)-1])
	}
}
