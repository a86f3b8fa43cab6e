//go:build integration

package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/cucumber/godog"
	"github.com/sirupsen/logrus"
)

// Links handed out by the fake Imgur server
const (
	imgurVideoLink = "https://i.imgur.com/tf4Kq9Z"
	imgurStillLink = "https://i.imgur.com/tf4Kq9Z.gif"
)

type imgurUpload struct {
	kind string // video or still
	size int
}

// fakeClipboard implements desktop.Clipboard for testing
type fakeClipboard struct {
	mu   sync.Mutex
	text string
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

func (c *fakeClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// servicesContext runs fake Tenor and Imgur servers shared by the pipeline and upload scenarios
type servicesContext struct {
	tempDir string
	tenor   *httptest.Server
	imgur   *httptest.Server

	mu           sync.Mutex
	clips        map[string]bool
	searches     map[string]string
	searchCount  int
	imgurFailing bool
	uploads      []imgurUpload

	clipboard *fakeClipboard
}

var SharedServices = &servicesContext{}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func InitializeServicesScenario(ctx *godog.ScenarioContext) {
	svc := SharedServices

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "time-for-test-*")
		if err != nil {
			return c, err
		}
		svc.tempDir = tempDir
		svc.clips = make(map[string]bool)
		svc.searches = make(map[string]string)
		svc.searchCount = 0
		svc.imgurFailing = false
		svc.uploads = nil
		svc.clipboard = &fakeClipboard{}
		svc.tenor = httptest.NewServer(http.HandlerFunc(svc.serveTenor))
		svc.imgur = httptest.NewServer(http.HandlerFunc(svc.serveImgur))
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if svc.tenor != nil {
			svc.tenor.Close()
		}
		if svc.imgur != nil {
			svc.imgur.Close()
		}
		if svc.tempDir != "" {
			os.RemoveAll(svc.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^tenor has clips for "([^"]*)"$`, svc.tenorHasClipsFor)
	ctx.Step(`^imgur accepts uploads$`, svc.imgurAcceptsUploads)
	ctx.Step(`^imgur is failing$`, svc.imgurIsFailing)
	ctx.Step(`^imgur should have received (\d+) uploads?$`, svc.imgurShouldHaveReceivedUploads)
	ctx.Step(`^imgur should have received a (video|still) upload$`, svc.imgurShouldHaveReceivedAUpload)
	ctx.Step(`^the clipboard should hold the imgur link$`, svc.theClipboardShouldHoldTheImgurLink)
}

func (s *servicesContext) serveTenor(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/media/") {
		fmt.Fprintf(w, "webm bytes for %s", strings.TrimPrefix(r.URL.Path, "/media/"))
		return
	}

	q := r.URL.Query().Get("q")
	s.mu.Lock()
	s.searches[q] = r.URL.Query().Get("limit")
	s.searchCount++
	hasClips := s.clips[q]
	s.mu.Unlock()

	if !hasClips {
		fmt.Fprint(w, `{"results":[],"next":""}`)
		return
	}

	type format struct {
		URL string `json:"url"`
	}
	type result struct {
		ID           string            `json:"id"`
		MediaFormats map[string]format `json:"media_formats"`
	}
	var results []result
	for i := 0; i < 3; i++ {
		u := fmt.Sprintf("%s/media/%s-%d.webm", s.tenor.URL, url.PathEscape(q), i)
		results = append(results, result{ID: fmt.Sprint(i), MediaFormats: map[string]format{"webm": {URL: u}}})
	}
	json.NewEncoder(w).Encode(map[string]any{"results": results, "next": "3"})
}

func (s *servicesContext) serveImgur(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	failing := s.imgurFailing
	s.mu.Unlock()

	if failing {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "<html>Imgur is over capacity!</html>")
		return
	}

	kind, size := "still", 0
	link := imgurStillLink
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		kind, link = "video", imgurVideoLink+"."
		if f, _, err := r.FormFile("video"); err == nil {
			data, _ := io.ReadAll(f)
			size = len(data)
			f.Close()
		}
	} else {
		data, _ := io.ReadAll(r.Body)
		size = len(data)
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, imgurUpload{kind: kind, size: size})
	s.mu.Unlock()

	fmt.Fprintf(w, `{"data":{"link":%q},"success":true,"status":200}`, link)
}

func (s *servicesContext) tenorHasClipsFor(query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[query] = true
	return nil
}

func (s *servicesContext) imgurAcceptsUploads() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imgurFailing = false
	return nil
}

func (s *servicesContext) imgurIsFailing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imgurFailing = true
	return nil
}

func (s *servicesContext) imgurShouldHaveReceivedUploads(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.uploads) != count {
		return fmt.Errorf("expected %d uploads, got %d", count, len(s.uploads))
	}
	return nil
}

func (s *servicesContext) imgurShouldHaveReceivedAUpload(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.uploads {
		if u.kind == kind {
			if u.size == 0 {
				return fmt.Errorf("%s upload was empty", kind)
			}
			return nil
		}
	}
	return fmt.Errorf("expected a %s upload, got %+v", kind, s.uploads)
}

func (s *servicesContext) theClipboardShouldHoldTheImgurLink() error {
	got := s.clipboard.Text()
	if got != imgurVideoLink && got != imgurStillLink {
		return fmt.Errorf("expected clipboard to hold the imgur link, got %q", got)
	}
	return nil
}

func (s *servicesContext) searchLimit(query string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit, ok := s.searches[query]
	return limit, ok
}

func (s *servicesContext) totalSearches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchCount
}
