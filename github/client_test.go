package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shipitai/filereviewer/retry"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(server.Client(), server.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestListPullRequestFiles_Paginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls/5/files", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page = %q, want 100", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<http://%s%s?page=2&per_page=100>; rel="next"`, r.Host, r.URL.Path))
			fmt.Fprint(w, `[
				{"filename": "a.ts", "status": "modified", "patch": "@@ -1 +1 @@\n-a\n+b", "additions": 1, "deletions": 1},
				{"filename": "logo.png", "status": "added"}
			]`)
		case "2":
			fmt.Fprint(w, `[{"filename": "old.go", "status": "removed", "patch": "@@ -1 +0,0 @@\n-x"}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	client := newTestClient(t, mux)
	files, err := client.ListPullRequestFiles(context.Background(), "acme", "widgets", 5)
	if err != nil {
		t.Fatalf("ListPullRequestFiles() error = %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	wantNames := []string{"a.ts", "logo.png", "old.go"}
	for i, name := range wantNames {
		if files[i].Filename != name {
			t.Errorf("files[%d] = %q, want %q", i, files[i].Filename, name)
		}
	}
	if !files[0].HasPatch || files[0].Additions != 1 {
		t.Errorf("files[0] = %+v, want patch with 1 addition", files[0])
	}
	if files[1].HasPatch {
		t.Error("binary file should have no patch")
	}
	if files[2].Status != "removed" {
		t.Errorf("files[2].Status = %q, want removed", files[2].Status)
	}
}

func TestGetPullRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls/5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 1, "number": 5, "title": "Add widgets", "head": {"ref": "feature", "sha": "abc123"}, "base": {"ref": "main", "sha": "def456"}}`)
	})

	pr, err := newTestClient(t, mux).GetPullRequest(context.Background(), "acme", "widgets", 5)
	if err != nil {
		t.Fatalf("GetPullRequest() error = %v", err)
	}
	if pr.HeadSHA() != "abc123" {
		t.Errorf("HeadSHA() = %q, want abc123", pr.HeadSHA())
	}
	if pr.Title != "Add widgets" {
		t.Errorf("Title = %q", pr.Title)
	}
}

func TestFetchFileContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/contents/docs/standards.md", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ref"); got != "abc123" {
			t.Errorf("ref = %q, want abc123", got)
		}
		content := base64.StdEncoding.EncodeToString([]byte("- prefer small functions\n"))
		fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "path": "docs/standards.md", "content": %q}`, content)
	})
	mux.HandleFunc("/repos/acme/widgets/contents/big.md", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type": "file", "encoding": "none", "path": "big.md"}`)
	})
	mux.HandleFunc("/repos/acme/widgets/contents/missing.md", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	client := newTestClient(t, mux)

	t.Run("decodes base64", func(t *testing.T) {
		got, err := client.FetchFileContent(context.Background(), "acme", "widgets", "docs/standards.md", "abc123")
		if err != nil {
			t.Fatalf("FetchFileContent() error = %v", err)
		}
		if got != "- prefer small functions\n" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("missing content field", func(t *testing.T) {
		_, err := client.FetchFileContent(context.Background(), "acme", "widgets", "big.md", "")
		if !errors.Is(err, ErrContentMissing) {
			t.Errorf("error = %v, want ErrContentMissing", err)
		}
		if !retry.IsPermanent(err) {
			t.Error("missing content should not be retried")
		}
	})

	t.Run("not found is permanent", func(t *testing.T) {
		_, err := client.FetchFileContent(context.Background(), "acme", "widgets", "missing.md", "")
		if err == nil {
			t.Fatal("expected error")
		}
		if !retry.IsPermanent(err) {
			t.Error("404 should be permanent")
		}
		if StatusCode(err) != http.StatusNotFound {
			t.Errorf("StatusCode() = %d, want 404", StatusCode(err))
		}
	})
}

func TestCreateFileComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls/5/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		want := map[string]any{
			"body":         "Looks good",
			"path":         "src/a.ts",
			"commit_id":    "abc123",
			"subject_type": "file",
		}
		for k, v := range want {
			if body[k] != v {
				t.Errorf("body[%q] = %v, want %v", k, body[k], v)
			}
		}
		if _, ok := body["line"]; ok {
			t.Error("file-scoped comment must not carry a line")
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 77, "path": "src/a.ts", "commit_id": "abc123", "body": "Looks good"}`)
	})

	comment, err := newTestClient(t, mux).CreateFileComment(context.Background(), "acme", "widgets", 5, "abc123", "src/a.ts", "Looks good")
	if err != nil {
		t.Fatalf("CreateFileComment() error = %v", err)
	}
	if comment.ID != 77 {
		t.Errorf("ID = %d, want 77", comment.ID)
	}
	if comment.SubjectType != SubjectTypeFile {
		t.Errorf("SubjectType = %q, want file", comment.SubjectType)
	}
}

func TestCreateReview(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls/5/reviews", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["event"] != "COMMENT" || body["commit_id"] != "abc123" {
			t.Errorf("unexpected review body %v", body)
		}
		fmt.Fprint(w, `{"id": 9, "state": "COMMENTED", "html_url": "https://github.com/acme/widgets/pull/5#review-9"}`)
	})

	review, err := newTestClient(t, mux).CreateReview(context.Background(), "acme", "widgets", 5, &ReviewRequest{
		CommitID: "abc123",
		Body:     "summary",
		Event:    "COMMENT",
	})
	if err != nil {
		t.Fatalf("CreateReview() error = %v", err)
	}
	if review.ID != 9 || review.State != "COMMENTED" {
		t.Errorf("review = %+v", review)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status        int
		wantPermanent bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusNotFound, true},
		{http.StatusUnprocessableEntity, true},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/acme/widgets/pulls/5", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"message": "nope"}`)
			})

			_, err := newTestClient(t, mux).GetPullRequest(context.Background(), "acme", "widgets", 5)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := retry.IsPermanent(err); got != tt.wantPermanent {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.wantPermanent)
			}
		})
	}
}

func TestNewTokenClientRequiresToken(t *testing.T) {
	if _, err := NewTokenClient("", ""); err == nil {
		t.Error("expected error for empty token")
	}
}
