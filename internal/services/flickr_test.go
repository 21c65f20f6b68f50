package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dcheno/flickrup/internal/shared"
)

func newTestService(t *testing.T, handler http.Handler) (*FlickrService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewFlickrService(shared.FlickrConfig{
		APIKey:    "key",
		APISecret: "secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	// Bypass OAuth signing in tests; the handler is the fake API.
	svc.httpClient = server.Client()
	svc.restURL = server.URL + "/rest/"
	svc.uploadURL = server.URL + "/upload/"

	return svc, server
}

func TestNewFlickrService(t *testing.T) {
	t.Run("requires api key and secret", func(t *testing.T) {
		_, err := NewFlickrService(shared.FlickrConfig{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("without oauth token is not authenticated", func(t *testing.T) {
		svc, err := NewFlickrService(shared.FlickrConfig{APIKey: "k", APISecret: "s"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := svc.Authenticate(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("method"); got != "flickr.test.login" {
				t.Errorf("expected flickr.test.login, got %s", got)
			}
			fmt.Fprint(w, `{"user":{"id":"12345@N00","username":{"_content":"tester"}},"stat":"ok"}`)
		}))

		if err := svc.Authenticate(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"stat":"fail","code":98,"message":"Invalid auth token"}`)
		}))

		err := svc.Authenticate(context.Background())
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestListSets(t *testing.T) {
	t.Run("walks pages", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("page") {
			case "1":
				fmt.Fprint(w, `{"photosets":{"page":1,"pages":2,"photoset":[{"id":"s1","title":{"_content":"Vacation"},"description":{"_content":"d"}}]},"stat":"ok"}`)
			case "2":
				fmt.Fprint(w, `{"photosets":{"page":2,"pages":2,"photoset":[{"id":"s2","title":{"_content":"Family"},"description":{"_content":""}}]},"stat":"ok"}`)
			default:
				t.Errorf("unexpected page %s", r.URL.Query().Get("page"))
			}
		}))

		sets, err := svc.ListSets(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sets) != 2 {
			t.Fatalf("expected 2 sets, got %d", len(sets))
		}
		if sets[0].ID != "s1" || sets[0].Title != "Vacation" {
			t.Errorf("unexpected first set: %+v", sets[0])
		}
		if sets[1].ID != "s2" || sets[1].Title != "Family" {
			t.Errorf("unexpected second set: %+v", sets[1])
		}
	})

	t.Run("api failure surfaces as APIError", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"stat":"fail","code":100,"message":"Invalid API Key"}`)
		}))

		_, err := svc.ListSets(context.Background())
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Code != 100 {
			t.Errorf("expected code 100, got %d", apiErr.Code)
		}
	})
}

func TestListSetPhotos(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("photoset_id"); got != "s1" {
			t.Errorf("expected photoset_id s1, got %s", got)
		}
		fmt.Fprint(w, `{"photoset":{"id":"s1","page":1,"pages":1,"photo":[{"id":"p1","title":"a.jpg"},{"id":"p2","title":"b.jpg"}]},"stat":"ok"}`)
	}))

	photos, err := svc.ListSetPhotos(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(photos) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(photos))
	}
	if photos[0].ID != "p1" || photos[0].Title != "a.jpg" {
		t.Errorf("unexpected first photo: %+v", photos[0])
	}
}

func TestCreateSet(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("primary_photo_id"); got != "p1" {
			t.Errorf("expected primary_photo_id p1, got %s", got)
		}
		fmt.Fprint(w, `{"photoset":{"id":"s9","url":"https://flickr.example/s9"},"stat":"ok"}`)
	}))

	set, err := svc.CreateSet(context.Background(), "Vacation", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.ID != "s9" || set.Title != "Vacation" {
		t.Errorf("unexpected set: %+v", set)
	}
}

func TestAddToSet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"stat":"ok"}`)
		}))

		if err := svc.AddToSet(context.Background(), "s1", "p1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("already in set is not an error", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"stat":"fail","code":3,"message":"Photo already in set"}`)
		}))

		if err := svc.AddToSet(context.Background(), "s1", "p1"); err != nil {
			t.Errorf("duplicate add should be tolerated, got %v", err)
		}
	})

	t.Run("other failures surface", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"stat":"fail","code":1,"message":"Photoset not found"}`)
		}))

		if err := svc.AddToSet(context.Background(), "s1", "p1"); err == nil {
			t.Error("expected error for photoset not found")
		}
	})
}

func TestUpload(t *testing.T) {
	writePhoto := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "a.jpg")
		if err := os.WriteFile(path, []byte("jpeg-bytes"), 0644); err != nil {
			t.Fatalf("failed to write photo: %v", err)
		}
		return path
	}

	t.Run("success", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("failed to parse multipart form: %v", err)
			}
			if got := r.FormValue("title"); got != "a.jpg" {
				t.Errorf("expected title a.jpg, got %s", got)
			}
			if got := r.FormValue("is_public"); got != "0" {
				t.Errorf("expected is_public 0, got %s", got)
			}
			if _, _, err := r.FormFile("photo"); err != nil {
				t.Errorf("expected photo part: %v", err)
			}
			fmt.Fprint(w, `<?xml version="1.0"?><rsp stat="ok"><photoid>4837</photoid></rsp>`)
		}))

		id, err := svc.Upload(context.Background(), UploadRequest{Path: writePhoto(t), Title: "a.jpg"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "4837" {
			t.Errorf("expected photo id 4837, got %s", id)
		}
	})

	t.Run("api failure", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<?xml version="1.0"?><rsp stat="fail"><err code="5" msg="Filetype was not recognised"/></rsp>`)
		}))

		_, err := svc.Upload(context.Background(), UploadRequest{Path: writePhoto(t), Title: "a.jpg"})
		if !errors.Is(err, shared.ErrUploadFailed) {
			t.Errorf("expected ErrUploadFailed, got %v", err)
		}
	})

	t.Run("missing local file", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request should be made for a missing file")
		}))

		_, err := svc.Upload(context.Background(), UploadRequest{Path: "/does/not/exist.jpg", Title: "x"})
		if !errors.Is(err, shared.ErrUploadFailed) {
			t.Errorf("expected ErrUploadFailed, got %v", err)
		}
	})
}
