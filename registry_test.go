package ds

import (
	"errors"
	"testing"
)

func TestProtocolRegistryGetKnownYears(t *testing.T) {
	r := newProtocolRegistry()
	for _, year := range []string{"2014", "2015", "2016", "2018", "2019", "2020"} {
		p, err := r.Get(year)
		if err != nil {
			t.Errorf("Get(%q) error = %v, want nil", year, err)
			continue
		}
		if p.Name != year {
			t.Errorf("Get(%q).Name = %q, want %q", year, p.Name, year)
		}
	}
}

func TestProtocolRegistryGetUnknownYearWrapsError(t *testing.T) {
	r := newProtocolRegistry()
	_, err := r.Get("1999")
	if err == nil {
		t.Fatal("Get(\"1999\") error = nil, want non-nil")
	}
	var dsErr *Error
	if !errors.As(err, &dsErr) {
		t.Fatalf("Get(\"1999\") error = %T, want *ds.Error via errors.As", err)
	}
}

func TestProtocolRegistryLatestIsNewestYear(t *testing.T) {
	r := newProtocolRegistry()
	p, err := r.Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if p.Name != "2020" {
		t.Errorf("Latest().Name = %q, want %q", p.Name, "2020")
	}
}

func TestProtocolRegistryYearsSortedAscending(t *testing.T) {
	r := newProtocolRegistry()
	years := r.Years()
	want := []string{"2014", "2015", "2016", "2018", "2019", "2020"}
	if len(years) != len(want) {
		t.Fatalf("Years() = %v, want %v", years, want)
	}
	for i := range want {
		if years[i] != want[i] {
			t.Errorf("Years()[%d] = %q, want %q", i, years[i], want[i])
		}
	}
}
