package leadstore

import (
	"reflect"
	"sort"
	"testing"

	"github.com/FranksOps/leadfinder/internal/lead"
)

func keys(rows []lead.Lead) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Email+"|"+r.URL)
	}
	sort.Strings(out)
	return out
}

func TestDedupe_Key(t *testing.T) {
	rows := []lead.Lead{
		{Email: "a@x.com", URL: "u1", BusinessName: "first"},
		{Email: "a@x.com", URL: "u1", BusinessName: "second"},
		{Email: "b@y.com", URL: "u2"},
	}
	got := Dedupe(rows, DedupeKey)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].BusinessName != "first" {
		t.Errorf("first occurrence should win, got %q", got[0].BusinessName)
	}
	if len(rows) != 3 {
		t.Errorf("input must not be modified")
	}
}

func TestDedupe_KeyIsCaseSensitive(t *testing.T) {
	rows := []lead.Lead{
		{Email: "Info@x.com", URL: "u1"},
		{Email: "info@x.com", URL: "u1"},
	}
	if got := Dedupe(rows, DedupeKey); len(got) != 2 {
		t.Errorf("expected case-distinct emails to survive, got %d", len(got))
	}
}

func TestDedupe_OrderIndependentKeySet(t *testing.T) {
	a := []lead.Lead{{Email: "a@x.com", URL: "u1"}, {Email: "b@y.com", URL: "u2"}}
	b := []lead.Lead{{Email: "b@y.com", URL: "u2", BusinessName: "B"}, {Email: "c@z.com", URL: "u3"}}

	ab := Dedupe(append(append([]lead.Lead{}, a...), b...), DedupeKey)
	ba := Dedupe(append(append([]lead.Lead{}, b...), a...), DedupeKey)
	if !reflect.DeepEqual(keys(ab), keys(ba)) {
		t.Errorf("key sets differ: %v vs %v", keys(ab), keys(ba))
	}
}

func TestDedupe_Domain(t *testing.T) {
	rows := []lead.Lead{
		{Email: "info@acme.co.za", URL: "u1"},
		{Email: "sales@acme.co.za", URL: "u2"},
		{Email: "hi@beta.co.za", URL: "u3"},
		{Email: "odd", URL: "u4"},
		{Email: "weird", URL: "u5"},
	}
	got := Dedupe(rows, DedupeDomain)
	want := []string{"info@acme.co.za", "hi@beta.co.za", "odd"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].Email != w {
			t.Errorf("row %d = %q, want %q", i, got[i].Email, w)
		}
	}

	if len(got) > len(Dedupe(rows, DedupeKey)) {
		t.Errorf("domain collapse must never keep more rows than key dedupe")
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != DedupeKey {
		t.Errorf("ParsePolicy(\"\") = %q, %v", p, err)
	}
	if p, err := ParsePolicy("DOMAIN"); err != nil || p != DedupeDomain {
		t.Errorf("ParsePolicy(DOMAIN) = %q, %v", p, err)
	}
	if _, err := ParsePolicy("fuzzy"); err == nil {
		t.Errorf("expected error for unknown policy")
	}
}

func TestTail(t *testing.T) {
	rows := []lead.Lead{{Email: "1"}, {Email: "2"}, {Email: "3"}}
	if got := Tail(rows, 2); len(got) != 2 || got[0].Email != "2" {
		t.Errorf("Tail(2) = %+v", got)
	}
	if got := Tail(rows, 5); len(got) != 3 {
		t.Errorf("Tail(5) = %+v", got)
	}
	if got := Tail(rows, 0); got != nil {
		t.Errorf("Tail(0) = %+v", got)
	}
}
