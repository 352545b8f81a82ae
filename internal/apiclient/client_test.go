package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/relief/internal/disasters"
	"github.com/MarcoPoloResearchLab/relief/internal/reports"
)

var fixedNow = time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", WithClock(func() time.Time { return fixedNow }))
}

func TestListDisastersSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/disasters" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"disasters":[{"id":"d-1","title":"Ridge Fire","location_name":"Ridge","severity":4,"tags":["fire"]}]}`))
	})

	records := client.ListDisasters(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID != "d-1" || records[0].Severity != disasters.SeverityMajor {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestListDisastersFallsBackOnServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	})

	records := client.ListDisasters(context.Background())
	assertFallbackDisasters(t, records)
}

func TestListDisastersFallsBackOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := New(baseURL, WithClock(func() time.Time { return fixedNow }))
	records := client.ListDisasters(context.Background())
	assertFallbackDisasters(t, records)
}

func TestListDisastersFallsBackOnMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not-json`))
	})
	assertFallbackDisasters(t, client.ListDisasters(context.Background()))
}

func assertFallbackDisasters(t *testing.T, records []disasters.Disaster) {
	t.Helper()
	if len(records) != 2 {
		t.Fatalf("expected 2 fallback records, got %d", len(records))
	}
	if records[0].Title != "Flood Emergency" || records[1].Title != "Earthquake Response" {
		t.Fatalf("unexpected fallback titles: %q %q", records[0].Title, records[1].Title)
	}
	for _, record := range records {
		if record.Status != disasters.StatusActive {
			t.Fatalf("expected Active status, got %q", record.Status)
		}
	}
}

func TestCreateDisasterSendsInput(t *testing.T) {
	var received disasters.Input
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/disasters" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"d-new","title":"Levee Breach","location_name":"Delta","description":"Water rising","severity":5,"status":"Active"}`))
	})

	created, err := client.CreateDisaster(context.Background(), disasters.Input{
		Title:        "Levee Breach",
		LocationName: "Delta",
		Description:  "Water rising",
		Tags:         []string{"flood"},
		Severity:     disasters.SeverityCatastrophic,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "d-new" {
		t.Fatalf("expected created id d-new, got %s", created.ID)
	}
	if received.Title != "Levee Breach" || len(received.Tags) != 1 || received.Severity != disasters.SeverityCatastrophic {
		t.Fatalf("unexpected request payload: %+v", received)
	}
}

func TestMutatingCallsSurfaceGenericFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(strings.Repeat("x", 1024)))
	})
	ctx := context.Background()

	_, err := client.CreateDisaster(ctx, disasters.Input{})
	assertAPIFailure(t, err, ErrCreateDisaster)

	_, err = client.UpdateDisaster(ctx, "d-1", disasters.Input{})
	assertAPIFailure(t, err, ErrUpdateDisaster)

	assertAPIFailure(t, client.DeleteDisaster(ctx, "d-1"), ErrDeleteDisaster)

	_, err = client.ExtractLocation(ctx, "Flooding near the old mill in Riverton")
	assertAPIFailure(t, err, ErrExtractLocation)

	_, err = client.VerifyImage(ctx, "d-1", "https://img.example/1.jpg")
	assertAPIFailure(t, err, ErrVerifyImage)

	_, err = client.CreateReport(ctx, reports.NewSubmission(reports.Draft{DisasterID: "d-1", Content: "x"}, nil))
	assertAPIFailure(t, err, ErrCreateReport)
}

func assertAPIFailure(t *testing.T, err, signal error) {
	t.Helper()
	if !errors.Is(err, signal) {
		t.Fatalf("expected %v, got %v", signal, err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", apiErr.StatusCode)
	}
	if len(apiErr.Body) != maxErrorBody {
		t.Fatalf("expected body truncated to %d bytes, got %d", maxErrorBody, len(apiErr.Body))
	}
}

func TestUpdateAndDeleteEscapeIdentifier(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.EscapedPath())
		if r.Method == http.MethodPut {
			w.Write([]byte(`{"id":"a/b","title":"Updated"}`))
			return
		}
		w.Write([]byte(`{"message":"deleted"}`))
	})

	updated, err := client.UpdateDisaster(context.Background(), "a/b", disasters.Input{Title: "Updated"})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated.Title != "Updated" {
		t.Fatalf("unexpected updated record: %+v", updated)
	}
	if err := client.DeleteDisaster(context.Background(), "a/b"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	expected := []string{"PUT /api/disasters/a%2Fb", "DELETE /api/disasters/a%2Fb"}
	if len(paths) != 2 || paths[0] != expected[0] || paths[1] != expected[1] {
		t.Fatalf("unexpected request paths: %v", paths)
	}
}

func TestExtractLocation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"description":"Flooding in Riverton"`) {
			t.Errorf("unexpected body: %s", body)
		}
		w.Write([]byte(`{"location_name":"Riverton"}`))
	})

	location, err := client.ExtractLocation(context.Background(), "Flooding in Riverton")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if location != "Riverton" {
		t.Fatalf("expected Riverton, got %q", location)
	}
}

func TestVerifyImageKeepsRawPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var request map[string]string
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if request["disasterId"] != "d-1" || request["imageUrl"] != "https://img.example/1.jpg" {
			t.Errorf("unexpected request: %v", request)
		}
		w.Write([]byte(`{"verified":true,"message":"Consistent with flooding","confidence":87.5,"model":"vision"}`))
	})

	verification, err := client.VerifyImage(context.Background(), "d-1", "https://img.example/1.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verification.Verified || verification.Confidence == nil || *verification.Confidence != 87.5 {
		t.Fatalf("unexpected verification: %+v", verification)
	}
	if !strings.Contains(string(verification.Raw), `"model":"vision"`) {
		t.Fatalf("expected raw payload to be retained, got %s", verification.Raw)
	}
}

func TestSocialPostsDefaultsKeywordsAndFallsBack(t *testing.T) {
	var keywords []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			DisasterID string   `json:"disasterId"`
			Keywords   []string `json:"keywords"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode body: %v", err)
		}
		keywords = request.Keywords
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	posts := client.SocialPosts(context.Background(), "disaster-3", nil)
	if strings.Join(keywords, ",") != "emergency,disaster,help" {
		t.Fatalf("expected default keywords, got %v", keywords)
	}
	if len(posts) != 4 || posts[0].Platform != "mock" {
		t.Fatalf("expected fallback posts, got %+v", posts)
	}
	if !strings.Contains(posts[0].Text, "disaster-3") {
		t.Fatalf("expected fallback text to reference disaster id, got %q", posts[0].Text)
	}
}

func TestSocialPostsSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"posts":[{"id":"p1","author":"@a","text":"flooding on main st","created_at":"2024-03-10T08:00:00Z","likes":3,"platform":"bluesky","analysis":{"sentiment":"negative","urgency":"high","keywords":["flood"],"needs_immediate_attention":true,"relevance_score":0.8}}]}`))
	})

	posts := client.SocialPosts(context.Background(), "d-1", []string{"flood"})
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].Platform != "bluesky" || !posts[0].Analysis.NeedsImmediateAttention {
		t.Fatalf("unexpected post: %+v", posts[0])
	}
}

func TestListDisastersToleratesLooseRecords(t *testing.T) {
	tests := []struct {
		name   string
		record string
		check  func(t *testing.T, record disasters.Disaster)
	}{
		{
			name:   "unknown severity label",
			record: `{"id":"d-2","title":"Dust Storm","severity":"Severe"}`,
			check: func(t *testing.T, record disasters.Disaster) {
				if record.Severity != 0 || disasters.LevelFor(record.Severity).Label != "Minor" {
					t.Fatalf("expected unknown severity to render as Minor, got %d", record.Severity)
				}
			},
		},
		{
			name:   "space separated created_at",
			record: `{"id":"d-2","title":"Dust Storm","created_at":"2024-05-01 10:00:00"}`,
			check: func(t *testing.T, record disasters.Disaster) {
				if !record.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
					t.Fatalf("unexpected created_at %s", record.CreatedAt)
				}
			},
		},
		{
			name:   "numeric id",
			record: `{"id":7,"title":"Dust Storm"}`,
			check: func(t *testing.T, record disasters.Disaster) {
				if record.ID != "7" {
					t.Fatalf("expected id 7, got %q", record.ID)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"disasters":[{"id":"d-1","title":"Ridge Fire","severity":4},` + tc.record + `]}`))
			})

			records := client.ListDisasters(context.Background())
			if len(records) != 2 || records[0].Title != "Ridge Fire" {
				t.Fatalf("expected backend records instead of fallback, got %+v", records)
			}
			tc.check(t, records[1])
		})
	}
}

func TestListDisastersSkipsUndecodableRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"disasters":[{"id":"d-1","title":"Ridge Fire"},{"id":"d-2","tags":"flood"},{"id":"d-3","title":"Levee Breach"}]}`))
	})

	records := client.ListDisasters(context.Background())
	if len(records) != 2 || records[0].ID != "d-1" || records[1].ID != "d-3" {
		t.Fatalf("expected the bad record to be skipped, got %+v", records)
	}
}
