package search

import (
	"context"
	"errors"
	"testing"
)

type fakeBackend struct {
	results []Result
	err     error
	queries []string
	max     int
}

func (f *fakeBackend) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	f.queries = append(f.queries, query)
	f.max = maxResults
	return f.results, f.err
}

func TestParseDuration(t *testing.T) {
	tests := map[string]int{
		"1:30":    90,
		"0:00":    0,
		"03:07":   187,
		"1:02:03": 3723,
		"10:00:0": 36000,
	}
	for in, want := range tests {
		got, err := ParseDuration(in)
		if err != nil {
			t.Errorf("ParseDuration(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDuration(%q) = %d, want %d", in, got, want)
		}
	}
	for _, bad := range []string{"", "90", "a:b", "1:2:3:4", "LIVE"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Errorf("ParseDuration(%q) expected error", bad)
		}
	}
}

func TestParseViews(t *testing.T) {
	tests := map[string]int64{
		"12,345 views":            12345,
		"1.234.567":               1234567,
		"No views":                0,
		"":                        0,
		"views: 7":                7,
		"99999999999999999999999": 0,
	}
	for in, want := range tests {
		if got := ParseViews(in); got != want {
			t.Errorf("ParseViews(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestRankIsStableDescending(t *testing.T) {
	results := []Result{
		{URLSuffix: "/watch?v=a", Duration: "3:00", Views: "100 views"},
		{URLSuffix: "/watch?v=b", Duration: "3:00", Views: "500 views"},
		{URLSuffix: "/watch?v=c", Duration: "3:00", Views: "500 views"},
		{URLSuffix: "/watch?v=d", Duration: "3:00", Views: "10 views"},
	}
	ranked := Rank(results)
	want := []string{"/watch?v=b", "/watch?v=c", "/watch?v=a", "/watch?v=d"}
	for i, w := range want {
		if ranked[i].URLSuffix != w {
			t.Errorf("rank %d = %s, want %s", i, ranked[i].URLSuffix, w)
		}
	}
}

func TestSelectNoResults(t *testing.T) {
	s := NewSelector(&fakeBackend{})
	_, err := s.Select(context.Background(), "q", Constraints{MaxLengthSeconds: 600, ResultCount: 5})
	if !errors.Is(err, ErrNoResultsFound) {
		t.Errorf("expected ErrNoResultsFound, got %v", err)
	}
}

func TestSelectLengthBoundIsStrict(t *testing.T) {
	c := Constraints{MaxLengthSeconds: 300, MinViewCount: 10, ResultCount: 1}

	s := NewSelector(&fakeBackend{results: []Result{{URLSuffix: "/watch?v=x", Duration: "5:00", Views: "1000"}}})
	_, err := s.Select(context.Background(), "q", c)
	if !errors.Is(err, ErrLengthExceeded) {
		t.Fatalf("exactly max length must be rejected, got %v", err)
	}
	var lengthErr *LengthExceededError
	if !errors.As(err, &lengthErr) || lengthErr.Link != "https://www.youtube.com/watch?v=x" {
		t.Errorf("expected link in error, got %v", err)
	}

	s = NewSelector(&fakeBackend{results: []Result{{URLSuffix: "/watch?v=x", Duration: "4:59", Views: "1000"}}})
	got, err := s.Select(context.Background(), "q", c)
	if err != nil {
		t.Fatalf("one second below max must be accepted: %v", err)
	}
	if got.Link() != "https://www.youtube.com/watch?v=x" {
		t.Errorf("unexpected link %s", got.Link())
	}
}

func TestSelectViewBoundIsStrict(t *testing.T) {
	c := Constraints{MaxLengthSeconds: 600, MinViewCount: 1000, ResultCount: 1}

	s := NewSelector(&fakeBackend{results: []Result{{URLSuffix: "/watch?v=x", Duration: "3:00", Views: "1,000 views"}}})
	_, err := s.Select(context.Background(), "q", c)
	if !errors.Is(err, ErrViewCountTooLow) {
		t.Fatalf("exactly min views must be rejected, got %v", err)
	}

	s = NewSelector(&fakeBackend{results: []Result{{URLSuffix: "/watch?v=x", Duration: "3:00", Views: "1,001 views"}}})
	if _, err := s.Select(context.Background(), "q", c); err != nil {
		t.Fatalf("one above min views must be accepted: %v", err)
	}
}

func TestSelectChoosesFirstOfTiedTop(t *testing.T) {
	backend := &fakeBackend{results: []Result{
		{URLSuffix: "/watch?v=0", Duration: "3:00", Views: "100"},
		{URLSuffix: "/watch?v=1", Duration: "3:00", Views: "500"},
		{URLSuffix: "/watch?v=2", Duration: "3:00", Views: "500"},
		{URLSuffix: "/watch?v=3", Duration: "3:00", Views: "10"},
	}}
	s := NewSelector(backend)
	got, err := s.Select(context.Background(), "Song - Artist", Constraints{MaxLengthSeconds: 600, MinViewCount: 0, ResultCount: 4})
	if err != nil {
		t.Fatal(err)
	}
	if got.URLSuffix != "/watch?v=1" {
		t.Errorf("expected input index 1, got %s", got.URLSuffix)
	}
	if backend.queries[0] != "Song - Artist" || backend.max != 4 {
		t.Errorf("backend called with %v / %d", backend.queries, backend.max)
	}
}

func TestSelectOnlyRejectsTopCandidate(t *testing.T) {
	// the most viewed result is too long; lower ranked ones are never considered
	s := NewSelector(&fakeBackend{results: []Result{
		{URLSuffix: "/watch?v=short", Duration: "3:00", Views: "100"},
		{URLSuffix: "/watch?v=long", Duration: "1:00:00", Views: "900"},
	}})
	_, err := s.Select(context.Background(), "q", Constraints{MaxLengthSeconds: 600, ResultCount: 2})
	if !errors.Is(err, ErrLengthExceeded) {
		t.Errorf("expected ErrLengthExceeded, got %v", err)
	}
}

func TestSelectBackendError(t *testing.T) {
	boom := errors.New("boom")
	s := NewSelector(&fakeBackend{err: boom})
	if _, err := s.Select(context.Background(), "q", Constraints{MaxLengthSeconds: 1}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}
