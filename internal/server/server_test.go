package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/model"
	"github.com/PACSamericana/poly/internal/pipeline"
	"github.com/PACSamericana/poly/internal/store"
)

type fakeGenerator struct {
	err  error
	last pipeline.Request
}

func (g *fakeGenerator) GenerateReport(ctx context.Context, req pipeline.Request) (*model.Report, error) {
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	cat := catalog.Default()
	report := model.NewReport(cat.StudyType)
	for _, s := range cat.Sections {
		report.Sections[s.Key] = model.SectionResult{Text: s.NormalText(req.Sex)}
	}
	report.Sections["liver"] = model.SectionResult{Text: "Mild hepatic steatosis."}
	return report, nil
}

type fakePinger bool

func (p fakePinger) Ping(ctx context.Context) bool { return bool(p) }

func newTestServer(t *testing.T, gen Generator, opts ...Option) *httptest.Server {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(New(catalog.Default(), gen, st, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateAndGetReport(t *testing.T) {
	gen := &fakeGenerator{}
	srv := newTestServer(t, gen)

	resp, err := http.Post(srv.URL+"/api/reports", "application/json",
		strings.NewReader(`{"dictation": "mild hepatic steatosis", "sex": "F"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var created ReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	if created.ID == "" {
		t.Error("Expected report id")
	}
	if gen.last.Sex != model.SexFemale {
		t.Errorf("Expected sex passed to generator, got %q", gen.last.Sex)
	}
	if !strings.Contains(created.Markdown, "### Liver\nMild hepatic steatosis.") {
		t.Errorf("Unexpected markdown: %s", created.Markdown)
	}

	get, err := http.Get(srv.URL + "/api/reports/" + created.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", get.StatusCode)
	}
	var loaded ReportResponse
	json.NewDecoder(get.Body).Decode(&loaded)
	if loaded.Report.Sections["liver"].Text != "Mild hepatic steatosis." {
		t.Errorf("Unexpected stored liver text %q", loaded.Report.Sections["liver"].Text)
	}

	md, err := http.Get(srv.URL + "/api/reports/" + created.ID + "?format=markdown")
	if err != nil {
		t.Fatal(err)
	}
	defer md.Body.Close()
	if ct := md.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Expected markdown content type, got %q", ct)
	}
}

func TestCreateReport_BadRequests(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"dictation":`},
		{"empty dictation", `{"dictation": "   "}`},
		{"missing dictation", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/reports", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestCreateReport_Aborted(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{err: context.Canceled})

	resp, err := http.Post(srv.URL+"/api/reports", "application/json", strings.NewReader(`{"dictation": "x"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

func TestGetReport_NotFound(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	resp, err := http.Get(srv.URL + "/api/reports/ct_report_20200101_000000")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	resp, err := http.Get(srv.URL + "/api/catalog")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var cat catalog.Catalog
	if err := json.NewDecoder(resp.Body).Decode(&cat); err != nil {
		t.Fatal(err)
	}
	if len(cat.Sections) != catalog.Default().Len() {
		t.Errorf("Expected %d sections, got %d", catalog.Default().Len(), len(cat.Sections))
	}

	section, err := http.Get(srv.URL + "/api/catalog/spleen")
	if err != nil {
		t.Fatal(err)
	}
	section.Body.Close()
	if section.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", section.StatusCode)
	}

	missing, err := http.Get(srv.URL + "/api/catalog/heart")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", missing.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		status int
		model  string
	}{
		{"no pinger", nil, http.StatusOK, "unchecked"},
		{"model up", []Option{WithPinger(fakePinger(true))}, http.StatusOK, "available"},
		{"model down", []Option{WithPinger(fakePinger(false))}, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeGenerator{}, tt.opts...)
			resp, err := http.Get(srv.URL + "/healthz")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			var body map[string]string
			json.NewDecoder(resp.Body).Decode(&body)
			if body["model"] != tt.model {
				t.Errorf("Expected model %q, got %q", tt.model, body["model"])
			}
		})
	}
}

type panicGenerator struct{}

func (panicGenerator) GenerateReport(ctx context.Context, req pipeline.Request) (*model.Report, error) {
	panic(errors.New("boom"))
}

func TestRecoverer(t *testing.T) {
	srv := newTestServer(t, panicGenerator{})

	resp, err := http.Post(srv.URL+"/api/reports", "application/json", strings.NewReader(`{"dictation": "x"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", resp.StatusCode)
	}
}
