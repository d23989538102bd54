package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gh "ghasexport/internal/github"
	"ghasexport/internal/record"
	"ghasexport/internal/scanner"
)

func newTestGitHubClient(t *testing.T, mux *http.ServeMux) (*gh.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := gh.NewClient(context.Background(), "dummy", gh.WithBaseURL(server.URL+"/api/v3/"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, server
}

func TestListRepositories_PaginatesInOrder(t *testing.T) {
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/api/v3/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"name":"c","full_name":"acme/c","owner":{"login":"acme"},"archived":true}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v3/orgs/acme/repos?page=2>; rel="next"`, serverURL))
		fmt.Fprint(w, `[
			{"name":"b","full_name":"acme/b","owner":{"login":"acme"},"security_and_analysis":{"secret_scanning":{"status":"enabled"}}},
			{"name":"a","full_name":"acme/a","owner":{"login":"acme"}}
		]`)
	})
	mux.HandleFunc("/api/v3/repos/acme/b", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("metadata for a listed repository must come from the listing")
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, server := newTestGitHubClient(t, mux)
	serverURL = server.URL

	meta := scanner.NewMetadata(client)
	l := NewLister(client, meta, Filter{})

	refs, err := l.ListRepositories(context.Background(), "acme")
	if err != nil {
		t.Fatalf("ListRepositories failed: %v", err)
	}
	want := []record.Ref{{Owner: "acme", Name: "b"}, {Owner: "acme", Name: "a"}, {Owner: "acme", Name: "c"}}
	if len(refs) != len(want) {
		t.Fatalf("expected %v, got %v", want, refs)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("expected %v at %d, got %v", want[i], i, refs[i])
		}
	}

	repo, err := meta.Repository(context.Background(), record.Ref{Owner: "acme", Name: "b"})
	if err != nil {
		t.Fatalf("Repository failed: %v", err)
	}
	if repo.GetSecurityAndAnalysis().GetSecretScanning().GetStatus() != "enabled" {
		t.Fatalf("expected seeded security_and_analysis")
	}
}

func TestListRepositories_AppliesFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"name":"a","full_name":"acme/a","owner":{"login":"acme"}},
			{"name":"old","full_name":"acme/old","owner":{"login":"acme"},"archived":true}
		]`)
	})
	client, _ := newTestGitHubClient(t, mux)

	refs, err := NewLister(client, nil, Filter{Archived: ArchivedExclude}).ListRepositories(context.Background(), "acme")
	if err != nil {
		t.Fatalf("ListRepositories failed: %v", err)
	}
	if len(refs) != 1 || refs[0].Name != "a" {
		t.Fatalf("expected only acme/a, got %v", refs)
	}
}

func TestListRepositories_Error(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/orgs/ghost/repos", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	client, _ := newTestGitHubClient(t, mux)

	_, err := NewLister(client, nil, Filter{}).ListRepositories(context.Background(), "ghost")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestListOrganizations(t *testing.T) {
	mux := http.NewServeMux()
	calls := 0
	mux.HandleFunc("/api/graphql", func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if !strings.Contains(req.Query, "enterprise(slug: $slug)") {
			t.Errorf("unexpected query: %s", req.Query)
		}
		if req.Variables["slug"] == "missing" {
			fmt.Fprint(w, `{"data":{"enterprise":null}}`)
			return
		}
		if req.Variables["cursor"] == nil {
			fmt.Fprint(w, `{"data":{"enterprise":{"organizations":{"nodes":[{"login":"acme"},{"login":"globex"}],"pageInfo":{"hasNextPage":true,"endCursor":"c1"}}}}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"enterprise":{"organizations":{"nodes":[{"login":"initech"}],"pageInfo":{"hasNextPage":false,"endCursor":"c2"}}}}}`)
	})
	client, _ := newTestGitHubClient(t, mux)
	l := NewLister(client, nil, Filter{})

	orgs, err := l.ListOrganizations(context.Background(), "megacorp")
	if err != nil {
		t.Fatalf("ListOrganizations failed: %v", err)
	}
	if strings.Join(orgs, ",") != "acme,globex,initech" {
		t.Fatalf("unexpected organizations %v", orgs)
	}
	if calls != 2 {
		t.Fatalf("expected 2 pages, got %d", calls)
	}

	if _, err := l.ListOrganizations(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown enterprise")
	}
	if _, err := l.ListOrganizations(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty enterprise")
	}
}
