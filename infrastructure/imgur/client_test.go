package imgur

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"time-for/domain/hosting"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("client-123", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithLogger(quietLogger()))
}

func TestClient_UploadVideo(t *testing.T) {
	var gotAuth, gotPath, gotField, gotFile, gotContent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		f, hdr, err := r.FormFile("video")
		if err == nil {
			gotField = "video"
			gotFile = hdr.Filename
			b, _ := io.ReadAll(f)
			gotContent = string(b)
		}
		fmt.Fprint(w, `{"data":{"id":"abc","link":"https://i.imgur.com/abc."},"success":true,"status":200}`)
	})

	path := writeFile(t, "full.webm", "video-bytes")
	link, err := c.Upload(context.Background(), path, hosting.KindVideo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if link.URL != "https://i.imgur.com/abc" {
		t.Errorf("link = %q, want trailing dot stripped", link.URL)
	}
	if gotAuth != "Client-ID client-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/upload" {
		t.Errorf("path = %q", gotPath)
	}
	if gotField != "video" || gotFile != "full.webm" || gotContent != "video-bytes" {
		t.Errorf("form field=%q file=%q content=%q", gotField, gotFile, gotContent)
	}
}

func TestClient_UploadStillSendsRawBody(t *testing.T) {
	var gotBody, gotType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		fmt.Fprint(w, `{"data":{"link":"https://i.imgur.com/xyz.gif"},"success":true}`)
	})

	path := writeFile(t, "full.gif", "GIF89a")
	link, err := c.Upload(context.Background(), path, hosting.KindStill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.URL != "https://i.imgur.com/xyz.gif" {
		t.Errorf("link = %q", link.URL)
	}
	if gotBody != "GIF89a" {
		t.Errorf("body = %q, want raw file bytes", gotBody)
	}
	if strings.HasPrefix(gotType, "multipart/") {
		t.Errorf("still upload used multipart content type %q", gotType)
	}
}

func TestClient_UploadFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantNoLink bool
	}{
		{
			name: "unparseable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, "Over capacity")
			},
			wantNoLink: true,
		},
		{
			name: "error payload without link",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"data":{"error":"Invalid client_id","request":"/3/upload"},"success":false,"status":403}`)
			},
			wantNoLink: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			path := writeFile(t, "full.webm", "x")

			_, err := c.Upload(context.Background(), path, hosting.KindVideo)

			var uf *hosting.UploadFailure
			if !errors.As(err, &uf) || uf.Provider != "imgur" {
				t.Fatalf("err = %v, want UploadFailure", err)
			}
			if tt.wantNoLink && !errors.Is(err, hosting.ErrNoLink) {
				t.Errorf("err = %v, want ErrNoLink", err)
			}
		})
	}
}

func TestClient_UploadMissingFile(t *testing.T) {
	c := NewClient("id", WithLogger(quietLogger()))
	_, err := c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.webm"), hosting.KindVideo)

	var uf *hosting.UploadFailure
	if !errors.As(err, &uf) {
		t.Fatalf("err = %v, want UploadFailure", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped ErrNotExist", err)
	}
}

func TestClient_UploadNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient("id", WithBaseURL(base), WithLogger(quietLogger()))
	_, err := c.Upload(context.Background(), writeFile(t, "full.webm", "x"), hosting.KindVideo)

	var uf *hosting.UploadFailure
	if !errors.As(err, &uf) {
		t.Fatalf("err = %v, want UploadFailure", err)
	}
	if errors.Is(err, hosting.ErrNoLink) {
		t.Errorf("network failure reported as missing link")
	}
}
