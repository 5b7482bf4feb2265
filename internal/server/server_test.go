package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nippo-signage/go/internal/config"
	"github.com/nippo-signage/go/internal/logger"
	"github.com/nippo-signage/go/internal/models"
	"github.com/nippo-signage/go/internal/testutil"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Assets = config.AssetsCfg{
		Background: filepath.Join(dir, "missing.png"),
		Font:       filepath.Join(dir, "missing.ttf"),
	}
	srv, err := New(Config{
		Host:     "127.0.0.1",
		Settings: cfg,
		Now:      func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

// upload builds a multipart request carrying data as "file" plus extra fields.
func upload(t *testing.T, path string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		fw, err := mw.CreateFormFile("file", "report.pdf")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func reportPDF() []byte {
	return testutil.BuildPDF(testutil.TablePage(testutil.ScheduleRows(), testutil.RuleCells))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
}

func TestRowsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("lists filtered rows", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, upload(t, "/api/rows", reportPDF(), nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var listing models.Listing
		if err := json.NewDecoder(rec.Body).Decode(&listing); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if listing.Status != models.StatusOK {
			t.Errorf("status = %q", listing.Status)
		}
		var rooms []string
		for _, r := range listing.Rows {
			rooms = append(rooms, r.Record.Room)
		}
		if got := strings.Join(rooms, ","); got != "ED-101,MA-202,MA-204" {
			t.Errorf("rooms = %s", got)
		}
		if listing.Rows[2].Record.Staff != "未定" {
			t.Errorf("staff placeholder = %q", listing.Rows[2].Record.Staff)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, upload(t, "/api/rows", []byte("plain text"), nil))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		var listing models.Listing
		json.NewDecoder(rec.Body).Decode(&listing)
		if listing.Status != models.StatusUnreadable || len(listing.Rows) != 0 {
			t.Errorf("unexpected listing %+v", listing)
		}
	})

	t.Run("no table", func(t *testing.T) {
		data := testutil.BuildPDF(testutil.TablePage(testutil.ScheduleRows(), testutil.RuleNone))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, upload(t, "/api/rows", data, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var listing models.Listing
		json.NewDecoder(rec.Body).Decode(&listing)
		if listing.Status != models.StatusNoTable || listing.Message == "" {
			t.Errorf("unexpected listing %+v", listing)
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, upload(t, "/api/rows", nil, map[string]string{"x": "y"}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRenderEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("renders selected rows", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, upload(t, "/api/render", reportPDF(), map[string]string{
			"select": "0,2",
			"date":   "today",
		}))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("content type %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "signage.png") {
			t.Errorf("content disposition %q", cd)
		}
		if rec.Header().Get("X-Render-ID") == "" {
			t.Error("missing render id")
		}
		if got := rec.Header().Get("X-Max-Rows"); got != "7" {
			t.Errorf("X-Max-Rows = %q, want 7", got)
		}
		img, err := png.Decode(rec.Body)
		if err != nil {
			t.Fatalf("decode png: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 1920 || b.Dy() != 1080 {
			t.Errorf("image size %v", b)
		}
	})

	for _, tc := range []struct {
		name   string
		data   []byte
		fields map[string]string
		want   int
	}{
		{"empty selection", reportPDF(), map[string]string{"select": ""}, http.StatusBadRequest},
		{"empty selection before reading pdf", []byte("not a pdf"), nil, http.StatusBadRequest},
		{"bad index", reportPDF(), map[string]string{"select": "a"}, http.StatusBadRequest},
		{"out of range", reportPDF(), map[string]string{"select": "9"}, http.StatusBadRequest},
		{"bad date", reportPDF(), map[string]string{"select": "0", "date": "01/02"}, http.StatusBadRequest},
		{"unreadable", []byte("not a pdf"), map[string]string{"select": "0"}, http.StatusUnprocessableEntity},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, upload(t, "/api/render", tc.data, tc.fields))
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("error content type %q", ct)
			}
		})
	}
}

func TestRenderEndpointEmptyReport(t *testing.T) {
	srv := newTestServer(t)
	noMatch := testutil.TablePage([][]string{{"Room", "Program"}, {"XYZ-1", "Storage"}}, testutil.RuleCells)

	for _, tc := range []struct {
		name string
		data []byte
		want models.Status
	}{
		{"no table", testutil.BuildPDF(testutil.TablePage(testutil.ScheduleRows(), testutil.RuleNone)), models.StatusNoTable},
		{"no rows passed filter", testutil.BuildPDF(noMatch), models.StatusNoRowsPassedFilter},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, upload(t, "/api/render", tc.data, map[string]string{"select": "0"}))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tc.want || resp.Error != tc.want.Message() {
				t.Errorf("response %+v, want status %s", resp, tc.want)
			}
			if strings.Contains(resp.Error, "out of range") {
				t.Errorf("empty report reported as a selection error: %q", resp.Error)
			}
		})
	}
}

func TestRenderLogsToConfiguredLogger(t *testing.T) {
	var logs bytes.Buffer
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Assets = config.AssetsCfg{
		Background: filepath.Join(dir, "missing.png"),
		Font:       filepath.Join(dir, "missing.ttf"),
	}
	srv, err := New(Config{Settings: cfg, Logger: logger.New(&logs, slog.LevelDebug, "server")})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, upload(t, "/api/render", reportPDF(), map[string]string{"select": "1"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := logs.String()
	for _, want := range []string{"[server] INFO: rendered signage", "records=1", "rendering with fallback asset"} {
		if !strings.Contains(got, want) {
			t.Errorf("log output missing %q:\n%s", want, got)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/render", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestServerAddr(t *testing.T) {
	srv, err := New(Config{Host: "localhost", Port: 9999, Settings: config.DefaultConfig()})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	if addr := srv.Addr(); addr != "localhost:9999" {
		t.Errorf("expected localhost:9999, got %s", addr)
	}
}

func TestServer_IsRunning(t *testing.T) {
	settings := config.DefaultConfig()
	settings.Server.Port = 0 // ephemeral
	srv, err := New(Config{Host: "127.0.0.1", Settings: settings})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	if srv.IsRunning() {
		t.Error("server should not be running before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	if !srv.IsRunning() {
		t.Error("server should be running after Start")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	if srv.IsRunning() {
		t.Error("server should not be running after shutdown")
	}
}

func TestConfigReloadSwapsComposer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signage.yaml")
	if err := config.WriteDefault(path); err != nil {
		t.Fatalf("write config: %v", err)
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	srv, err := New(Config{ConfigManager: mgr, Port: 0})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	next := config.DefaultConfig()
	next.Layout.LineHeight = 120
	if err := srv.apply(next); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := srv.state().composer.Layout.LineHeight; got != 120 {
		t.Errorf("line height after reload = %d", got)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, upload(t, "/api/render", reportPDF(), map[string]string{"select": "0"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Max-Rows"); got != "5" {
		t.Errorf("X-Max-Rows = %q, want 5", got)
	}
	io.Copy(io.Discard, rec.Body)
}
