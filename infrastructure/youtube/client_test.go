package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/youtube/v3"
)

// mockYouTubeService is a mock implementation for testing
type mockYouTubeService struct {
	videos        []*youtube.Video
	searchResults []*youtube.SearchResult
	shouldFail    bool
	failError     error

	listedIDs  []string
	queries    []string
	maxResults []int64
}

func (m *mockYouTubeService) ListVideos(ctx context.Context, id string) ([]*youtube.Video, error) {
	m.listedIDs = append(m.listedIDs, id)
	if m.shouldFail {
		return nil, m.failError
	}
	return m.videos, nil
}

func (m *mockYouTubeService) SearchVideos(ctx context.Context, query string, maxResults int64) ([]*youtube.SearchResult, error) {
	m.queries = append(m.queries, query)
	m.maxResults = append(m.maxResults, maxResults)
	if m.shouldFail {
		return nil, m.failError
	}
	return m.searchResults, nil
}

func TestClient_LookupByID(t *testing.T) {
	tests := []struct {
		name      string
		mock      *mockYouTubeService
		wantCount int
		wantTitle string
		wantErr   bool
		errMsg    string
	}{
		{
			name: "finds video",
			mock: &mockYouTubeService{
				videos: []*youtube.Video{
					{Id: "abc123", Snippet: &youtube.VideoSnippet{Title: "Song A"}},
				},
			},
			wantCount: 1,
			wantTitle: "Song A",
		},
		{
			name:      "no matching video",
			mock:      &mockYouTubeService{videos: []*youtube.Video{}},
			wantCount: 0,
		},
		{
			name: "video without snippet",
			mock: &mockYouTubeService{
				videos: []*youtube.Video{{Id: "abc123"}},
			},
			wantCount: 1,
			wantTitle: "",
		},
		{
			name: "handles API error",
			mock: &mockYouTubeService{
				shouldFail: true,
				failError:  fmt.Errorf("googleapi: Error 403: quotaExceeded"),
			},
			wantErr: true,
			errMsg:  "failed to list videos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), "", WithYouTubeService(tt.mock))
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			videos, err := client.LookupByID(context.Background(), "abc123")

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(videos) != tt.wantCount {
				t.Fatalf("got %d videos, want %d", len(videos), tt.wantCount)
			}
			if tt.wantCount > 0 && videos[0].Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", videos[0].Title, tt.wantTitle)
			}
			if tt.mock.listedIDs[0] != "abc123" {
				t.Errorf("listed id = %q, want abc123", tt.mock.listedIDs[0])
			}
		})
	}
}

func TestClient_Search(t *testing.T) {
	mock := &mockYouTubeService{
		searchResults: []*youtube.SearchResult{
			{Id: &youtube.ResourceId{Kind: "youtube#channel", ChannelId: "UC123"}},
			{
				Id:      &youtube.ResourceId{Kind: "youtube#video", VideoId: "xyz789"},
				Snippet: &youtube.SearchResultSnippet{Title: "Top Result"},
			},
			{Id: nil},
		},
	}
	client, err := NewClient(context.Background(), "", WithYouTubeService(mock))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	videos, err := client.Search(context.Background(), "some query", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("got %d videos, want 1 (non-video results skipped)", len(videos))
	}
	if videos[0].ID != "xyz789" || videos[0].Title != "Top Result" {
		t.Errorf("video = %+v", videos[0])
	}
	if mock.queries[0] != "some query" || mock.maxResults[0] != 1 {
		t.Errorf("search called with %q/%d", mock.queries[0], mock.maxResults[0])
	}
}

func TestClient_SearchError(t *testing.T) {
	mock := &mockYouTubeService{shouldFail: true, failError: fmt.Errorf("boom")}
	client, _ := NewClient(context.Background(), "", WithYouTubeService(mock))

	if _, err := client.Search(context.Background(), "q", 1); err == nil {
		t.Error("expected error but got none")
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(context.Background(), ""); err == nil {
		t.Error("expected error for missing api key")
	}
}

func TestGoogleYouTubeService_AgainstFakeAPI(t *testing.T) {
	var gotKeys []string
	var gotPaths []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKeys = append(gotKeys, r.URL.Query().Get("key"))
		gotPaths = append(gotPaths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/videos"):
			if r.URL.Query().Get("id") != "abc123" {
				fmt.Fprint(w, `{"items":[]}`)
				return
			}
			fmt.Fprint(w, `{"items":[{"id":"abc123","snippet":{"title":"Song A"}}]}`)
		case strings.HasSuffix(r.URL.Path, "/search"):
			fmt.Fprint(w, `{"items":[{"id":{"kind":"youtube#video","videoId":"xyz789"},"snippet":{"title":"Top Result"}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), "test-key", WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	videos, err := client.LookupByID(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("LookupByID() error: %v", err)
	}
	if len(videos) != 1 || videos[0].Title != "Song A" {
		t.Errorf("LookupByID() = %+v", videos)
	}

	missing, err := client.LookupByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("LookupByID() error: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("LookupByID(nope) = %+v, want empty", missing)
	}

	found, err := client.Search(context.Background(), "some query", 1)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(found) != 1 || found[0].ID != "xyz789" {
		t.Errorf("Search() = %+v", found)
	}

	for _, k := range gotKeys {
		if k != "test-key" {
			t.Errorf("request sent key %q, want test-key", k)
		}
	}
	if len(gotPaths) != 3 {
		t.Errorf("got %d api calls, want 3", len(gotPaths))
	}
}
