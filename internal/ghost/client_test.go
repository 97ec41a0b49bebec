package ghost

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/valenzanico/instagrampostwatcher/internal/composer"
)

var testSecret = []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04}

func testKey() string {
	return "keyid123:" + hex.EncodeToString(testSecret)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(baseURL, testKey(), 5*time.Second, 5*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func verifyGhostAuth(t *testing.T, r *http.Request) {
	t.Helper()

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Ghost ") {
		t.Errorf("Authorization header %q lacks Ghost scheme", auth)
		return
	}
	if got := r.Header.Get("Accept-Version"); got != "v5.0" {
		t.Errorf("Accept-Version = %q, want v5.0", got)
	}

	raw := strings.TrimPrefix(auth, "Ghost ")
	token, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		return testSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("/admin/"))
	if err != nil {
		t.Errorf("token does not verify: %v", err)
		return
	}
	if kid := token.Header["kid"]; kid != "keyid123" {
		t.Errorf("kid = %v, want keyid123", kid)
	}
}

func TestNewRejectsMalformedKey(t *testing.T) {
	if _, err := New("https://blog.example", "no-colon", time.Second, time.Second); err == nil {
		t.Fatal("expected error for key without separator")
	}
	if _, err := New("https://blog.example", "id:not-hex!", time.Second, time.Second); err == nil {
		t.Fatal("expected error for non-hex secret")
	}
}

func TestUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ghost/api/admin/images/upload/" {
			http.NotFound(w, r)
			return
		}
		verifyGhostAuth(t, r)

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if header.Filename != "01.jpg" {
			t.Errorf("filename = %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("part content type = %q", ct)
		}
		body, _ := io.ReadAll(f)
		if string(body) != "jpeg-bytes" {
			t.Errorf("unexpected file body %q", body)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"images": [{"url": "https://blog.example/content/images/01.jpg"}]}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "01.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := newTestClient(t, srv.URL)
	url, err := client.UploadImage(context.Background(), path)
	if err != nil {
		t.Fatalf("upload image: %v", err)
	}
	if url != "https://blog.example/content/images/01.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestUploadVideoUsesMediaEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ghost/api/admin/media/upload/" {
			http.NotFound(w, r)
			return
		}
		verifyGhostAuth(t, r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"media": [{"url": "https://blog.example/content/media/01.mp4"}]}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "01.mp4")
	if err := os.WriteFile(path, []byte("mp4-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := newTestClient(t, srv.URL)
	url, err := client.UploadVideo(context.Background(), path)
	if err != nil {
		t.Fatalf("upload video: %v", err)
	}
	if url != "https://blog.example/content/media/01.mp4" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestUploadFailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"file too large"}]}`, http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "01.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := newTestClient(t, srv.URL)
	if _, err := client.UploadImage(context.Background(), path); err == nil {
		t.Fatal("expected error on upload failure")
	}
}

func TestCreatePost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ghost/api/admin/posts/" {
			http.NotFound(w, r)
			return
		}
		verifyGhostAuth(t, r)

		var payload struct {
			Posts []struct {
				Title     string              `json:"title"`
				Status    string              `json:"status"`
				Tags      []map[string]string `json:"tags"`
				Mobiledoc string              `json:"mobiledoc"`
			} `json:"posts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if len(payload.Posts) != 1 {
			t.Fatalf("expected 1 post in payload, got %d", len(payload.Posts))
		}
		p := payload.Posts[0]
		if p.Title != "a title..." || p.Status != "published" {
			t.Errorf("unexpected post fields %+v", p)
		}
		if len(p.Tags) != 2 || p.Tags[0]["name"] != "instagram" {
			t.Errorf("unexpected tags %v", p.Tags)
		}

		// Mobiledoc travels as a JSON string, not a nested object.
		var doc composer.Mobiledoc
		if err := json.Unmarshal([]byte(p.Mobiledoc), &doc); err != nil {
			t.Errorf("mobiledoc is not valid JSON: %v", err)
		} else if doc.Version != "0.3.1" {
			t.Errorf("mobiledoc version = %q", doc.Version)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"posts": [{"title": "a title...", "url": "https://blog.example/a-title/"}]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	handle, err := client.CreatePost(context.Background(), PostOptions{
		Title:     "a title...",
		Status:    "published",
		Tags:      []string{"instagram", "social-media"},
		Mobiledoc: composer.BlogDocument("caption", []string{"https://x/1.jpg"}, nil),
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if handle.URL != "https://blog.example/a-title/" {
		t.Fatalf("unexpected handle %+v", handle)
	}
}
