package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAgentCardsDecodesDirectoryListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/agents" {
			t.Errorf("expected /agents, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"Pricing","description":"Answers pricing and budget questions","metadata":{"team":"monetization"}},
			{"name":"Creative","description":"Reviews ad creative"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/")
	cards, err := client.AgentCards(context.Background())
	if err != nil {
		t.Fatalf("expected directory listing to decode, got %v", err)
	}

	if len(cards) != 2 {
		t.Fatalf("expected 2 agent cards, got %d", len(cards))
	}
	if cards[0].Name != "Pricing" || cards[0].Description != "Answers pricing and budget questions" {
		t.Fatalf("unexpected first card: %+v", cards[0])
	}
	if cards[0].Metadata["team"] != "monetization" {
		t.Fatalf("expected metadata to pass through, got %+v", cards[0].Metadata)
	}
	if cards[1].Name != "Creative" {
		t.Fatalf("unexpected second card: %+v", cards[1])
	}
}

func TestRouteTargetsSkipUnroutableCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"Pricing","description":"Answers pricing and budget questions"},
			{"name":"Shadow","description":""},
			{"name":"","description":"Unnamed experiment"},
			{"name":"Planning","description":"Builds campaign plans"}
		]`))
	}))
	defer srv.Close()

	targets, err := NewClient(srv.URL).RouteTargets(context.Background())
	if err != nil {
		t.Fatalf("expected route targets, got %v", err)
	}

	if len(targets) != 2 {
		t.Fatalf("expected 2 route targets, got %d", len(targets))
	}
	if targets[0].Name != "Pricing" || targets[1].Name != "Planning" {
		t.Fatalf("expected Pricing and Planning in order, got %+v", targets)
	}
	if targets[1].Description != "Builds campaign plans" {
		t.Fatalf("expected descriptions to carry over, got %+v", targets[1])
	}
}

func TestRouteTargetsEmptyDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	targets, err := NewClient(srv.URL).RouteTargets(context.Background())
	if err != nil {
		t.Fatalf("expected an empty directory to be fine, got %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("expected no route targets, got %+v", targets)
	}
}

func TestAgentCardsSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "directory unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).AgentCards(context.Background())
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected a status error, got %v", err)
	}
}
