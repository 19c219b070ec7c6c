package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestTwitterPublish(t *testing.T) {
	var gotAuth, gotText string
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "rt-1" {
			t.Errorf("token request form: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"user-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotText = body["text"]
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1799","text":"hello"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tw := NewTwitter(context.Background(), TwitterConfig{
		BaseURL:      srv.URL,
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "rt-1",
		TokenURL:     srv.URL + "/oauth2/token",
	})

	id, err := tw.Publish(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if id != "1799" {
		t.Errorf("id: got %q, want 1799", id)
	}
	if gotAuth != "Bearer user-token" {
		t.Errorf("Authorization: got %q", gotAuth)
	}
	if gotText != "hello" {
		t.Errorf("text: got %q", gotText)
	}
}

func TestTwitterPublishSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tw := NewTwitter(context.Background(), TwitterConfig{BaseURL: srv.URL, BearerToken: "app"})
	_, err := tw.Publish(context.Background(), "hello")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 APIError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("publish attempts: got %d, want 1", calls.Load())
	}
}

func TestTwitterFetchRecent(t *testing.T) {
	var pages atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/by/username/joinferta", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app-token" {
			t.Errorf("Authorization: got %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"data":{"id":"42","username":"joinferta"}}`))
	})
	mux.HandleFunc("/2/users/42/tweets", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("exclude") != "retweets,replies" {
			t.Errorf("exclude: got %q", q.Get("exclude"))
		}
		if q.Get("tweet.fields") != "created_at,public_metrics" {
			t.Errorf("tweet.fields: got %q", q.Get("tweet.fields"))
		}
		n := pages.Add(1)
		if n == 1 {
			if q.Get("pagination_token") != "" {
				t.Error("first page should have no pagination token")
			}
			fmt.Fprint(w, `{"data":[
				{"id":"1","text":"first","created_at":"2026-02-01T10:00:00Z","public_metrics":{"like_count":10,"retweet_count":2,"reply_count":1,"quote_count":0}},
				{"id":"2","text":"second","created_at":"2026-01-31T10:00:00Z","public_metrics":{"like_count":3,"retweet_count":0,"reply_count":0,"quote_count":1}}
			],"meta":{"next_token":"p2"}}`)
			return
		}
		if q.Get("pagination_token") != "p2" {
			t.Errorf("pagination_token: got %q", q.Get("pagination_token"))
		}
		fmt.Fprint(w, `{"data":[
			{"id":"3","text":"third","created_at":"2026-01-30T10:00:00Z","public_metrics":{"like_count":0,"retweet_count":0,"reply_count":0,"quote_count":0}}
		],"meta":{}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tw := NewTwitter(context.Background(), TwitterConfig{BaseURL: srv.URL, BearerToken: "app-token"})
	drafts, err := tw.FetchRecent(context.Background(), "@joinferta", 100)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("drafts: got %d, want 3", len(drafts))
	}
	if drafts[0].ExternalID != "1" || drafts[0].Engagement.Score() != 14 {
		t.Errorf("first draft: %+v", drafts[0])
	}
	if drafts[0].PostedAt.Year() != 2026 {
		t.Errorf("posted at: %v", drafts[0].PostedAt)
	}
}

func TestTwitterFetchRecentRespectsLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/by/username/acct", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"7"}}`))
	})
	mux.HandleFunc("/2/users/7/tweets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("max_results") != "5" {
			t.Errorf("max_results: got %q, want minimum of 5", r.URL.Query().Get("max_results"))
		}
		fmt.Fprint(w, `{"data":[{"id":"1","text":"a"},{"id":"2","text":"b"},{"id":"3","text":"c"}],"meta":{"next_token":"x"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tw := NewTwitter(context.Background(), TwitterConfig{BaseURL: srv.URL})
	drafts, err := tw.FetchRecent(context.Background(), "acct", 2)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(drafts) != 2 {
		t.Errorf("drafts: got %d, want 2", len(drafts))
	}
}

func TestTwitterFetchRecentRetriesReads(t *testing.T) {
	var lookups atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/by/username/acct", func(w http.ResponseWriter, r *http.Request) {
		if lookups.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"id":"7"}}`))
	})
	mux.HandleFunc("/2/users/7/tweets", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[],"meta":{}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tw := NewTwitter(context.Background(), TwitterConfig{BaseURL: srv.URL})
	if _, err := tw.FetchRecent(context.Background(), "acct", 10); err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if lookups.Load() != 2 {
		t.Errorf("lookups: got %d, want 2", lookups.Load())
	}
}
