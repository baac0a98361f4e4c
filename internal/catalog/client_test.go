package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/tunefetch/internal/types"
)

func TestSearchTracks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tracks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("client_id") != "key123" {
			t.Error("missing client_id parameter")
		}
		if r.URL.Query().Get("q") != "daft punk" {
			t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
		}
		fmt.Fprint(w, `{"collection":[
			{"id": 101, "title": "One More Time", "duration": 320000, "user": {"username": "dp"}, "artwork_url": "https://img/101.jpg"},
			{"id": 102, "title": "Around the World", "duration": 428000, "user": {"username": "dp"}}
		]}`)
	}))
	defer srv.Close()

	c := New("key123", WithBaseURL(srv.URL))
	tracks, err := c.SearchTracks(context.Background(), "daft punk", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].ID != "101" || tracks[0].Title != "One More Time" || tracks[0].Artist != "dp" {
		t.Errorf("unexpected first track: %+v", tracks[0])
	}
	if tracks[0].Duration != 320 {
		t.Errorf("expected 320s duration, got %d", tracks[0].Duration)
	}
}

func TestTrending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("kind") != "trending" {
			t.Error("missing kind=trending")
		}
		fmt.Fprint(w, `{"collection":[{"track": {"id": 7, "title": "Hot", "duration": 1000, "user": {"username": "x"}}}]}`)
	}))
	defer srv.Close()

	c := New("k", WithBaseURL(srv.URL))
	tracks, err := c.Trending(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 || tracks[0].ID != "7" {
		t.Fatalf("unexpected tracks: %+v", tracks)
	}
}

func TestTrackAndMaterialize(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/tracks/55", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": 55, "title": "T", "duration": 5000, "user": {"username": "u"},
			"media": {"transcodings": [
				{"url": "%s/materialize/1", "format": {"protocol": "hls", "mime_type": "audio/mpegurl"}},
				{"url": "%s/materialize/2", "format": {"protocol": "progressive", "mime_type": "audio/mpeg"}}
			]}}`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/materialize/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"url": "https://cdn.example.com/final.mp3"}`)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := New("k", WithBaseURL(srv.URL))
	detail, err := c.Track(context.Background(), "55")
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Transcodings) != 2 {
		t.Fatalf("expected 2 transcodings, got %d", len(detail.Transcodings))
	}

	final, err := c.Materialize(context.Background(), detail.Transcodings[1].URL)
	if err != nil {
		t.Fatal(err)
	}
	if final != "https://cdn.example.com/final.mp3" {
		t.Errorf("unexpected materialized url %q", final)
	}
}

func TestLegacyStreamJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tracks/9/streams" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"http_mp3_128_url": "https://cdn.example.com/9.mp3"}`)
	}))
	defer srv.Close()

	c := New("k", WithLegacyBaseURL(srv.URL))
	u, err := c.LegacyStream(context.Background(), "9")
	if err != nil {
		t.Fatal(err)
	}
	if u != "https://cdn.example.com/9.mp3" {
		t.Errorf("unexpected url %q", u)
	}
}

func TestLegacyStreamRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tracks/9/streams", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/tracks/9/stream", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://cdn.example.com/redirected.mp3", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("k", WithLegacyBaseURL(srv.URL))
	u, err := c.LegacyStream(context.Background(), "9")
	if err != nil {
		t.Fatal(err)
	}
	if u != "https://cdn.example.com/redirected.mp3" {
		t.Errorf("unexpected url %q", u)
	}
}

func TestMissingAPIKey(t *testing.T) {
	c := New("")
	if c.Configured() {
		t.Error("expected unconfigured client")
	}
	_, err := c.SearchTracks(context.Background(), "x", 10)
	if !errors.Is(err, types.ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("k", WithBaseURL(srv.URL))
	if _, err := c.SearchTracks(context.Background(), "x", 10); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
