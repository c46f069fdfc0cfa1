package pagination

import (
	"net/http/httptest"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   Params
		want Params
	}{
		{Params{}, Params{Page: 1, PerPage: DefaultPerPage}},
		{Params{Page: 3, PerPage: 500}, Params{Page: 3, PerPage: MaxPerPage}},
		{Params{Page: -1, PerPage: 20}, Params{Page: 1, PerPage: 20}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestOffsetAndMeta(t *testing.T) {
	p := Params{Page: 3, PerPage: 10}
	if got := p.Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	meta := NewMeta(p, 21)
	if meta.TotalPages != 3 || meta.Total != 21 || meta.Page != 3 {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if empty := NewMeta(p, 0); empty.TotalPages != 0 {
		t.Fatalf("expected zero pages for empty result, got %d", empty.TotalPages)
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/orders?page=2&per_page=abc", nil)
	got := FromRequest(r)
	if got.Page != 2 || got.PerPage != DefaultPerPage {
		t.Fatalf("unexpected params %+v", got)
	}
}
