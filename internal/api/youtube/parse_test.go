package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const resultsPage = `<html><head><script>var ytInitialData = {"contents":{"twoColumnSearchResultsRenderer":{"primaryContents":{"sectionListRenderer":{"contents":[
{"itemSectionRenderer":{"contents":[
 {"channelRenderer":{"channelId":"UC1"}},
 {"videoRenderer":{"videoId":"aaa","title":{"runs":[{"text":"Song {live}"}]},"lengthText":{"simpleText":"3:45"},"viewCountText":{"simpleText":"1,234 views"},
  "navigationEndpoint":{"commandMetadata":{"webCommandMetadata":{"url":"/watch?v=aaa&pp=xyz"}}}}},
 {"videoRenderer":{"videoId":"bbb","title":{"runs":[{"text":"Live \"now\""}]},"viewCountText":{"runs":[{"text":"512"},{"text":" watching"}]},
  "navigationEndpoint":{"commandMetadata":{"webCommandMetadata":{"url":"/watch?v=bbb"}}}}}
]}},
{"continuationItemRenderer":{}},
{"itemSectionRenderer":{"contents":[
 {"videoRenderer":{"videoId":"ccc","title":{"runs":[{"text":"Third"}]},"lengthText":{"simpleText":"1:02:03"},"viewCountText":{"simpleText":"No views"}}}
]}}
]}}}}};</script></head></html>`

func TestParseResults(t *testing.T) {
	results, err := ParseResults([]byte(resultsPage))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	want := []struct{ suffix, duration, views, title string }{
		{"/watch?v=aaa", "3:45", "1,234 views", "Song {live}"},
		{"/watch?v=bbb", "", "512 watching", `Live "now"`},
		{"/watch?v=ccc", "1:02:03", "No views", "Third"},
	}
	for i, w := range want {
		r := results[i]
		if r.URLSuffix != w.suffix || r.Duration != w.duration || r.Views != w.views || r.Title != w.title {
			t.Errorf("result %d: got %+v", i, r)
		}
	}
}

func TestParseResultsWithoutData(t *testing.T) {
	if _, err := ParseResults([]byte("<html></html>")); !errors.Is(err, ErrNoInitialData) {
		t.Errorf("expected ErrNoInitialData, got %v", err)
	}
	if _, err := ParseResults([]byte(`var ytInitialData = {"a": "b"`)); !errors.Is(err, ErrNoInitialData) {
		t.Errorf("expected ErrNoInitialData for truncated payload, got %v", err)
	}
}

func TestParseResultsEmptyPage(t *testing.T) {
	results, err := ParseResults([]byte(`var ytInitialData = {"contents":{}};`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestWatchPath(t *testing.T) {
	cases := map[string]string{
		"/watch?v=abc":          "/watch?v=abc",
		"/watch?v=abc&list=PL1": "/watch?v=abc",
		"/shorts/abc":           "",
		"/watch":                "",
		"":                      "",
	}
	for in, want := range cases {
		if got := watchPath(in); got != want {
			t.Errorf("watchPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchClient(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("search_query")
		w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	client := NewSearchClient(server.URL+"/results", server.Client(), false)
	results, err := client.Search(context.Background(), "Song - Artist", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query != "Song - Artist" {
		t.Errorf("expected query to be forwarded, got %q", query)
	}
	if len(results) != 2 {
		t.Errorf("expected results truncated to 2, got %d", len(results))
	}
}

func TestSearchClientHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewSearchClient(server.URL, server.Client(), false)
	if _, err := client.Search(context.Background(), "x", 5); err == nil {
		t.Error("expected an error for a 500 response")
	}
}

func TestFibonacciDelay(t *testing.T) {
	if got := fibonacciDelay(3, baseRetryDelay); got != 5*baseRetryDelay {
		t.Errorf("expected 5s, got %v", got)
	}
	if got := fibonacciDelay(100, baseRetryDelay); got != maxRetryDelay {
		t.Errorf("expected cap of %v, got %v", maxRetryDelay, got)
	}
}
