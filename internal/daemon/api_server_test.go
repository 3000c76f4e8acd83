package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shelfmark/internal/api"
	"shelfmark/internal/config"
	"shelfmark/internal/confirm"
	"shelfmark/internal/database"
	"shelfmark/internal/extraction"
	"shelfmark/internal/queue"
	"shelfmark/internal/services"
	"shelfmark/internal/testsupport"
)

type stubModel struct {
	reply string
}

func (m stubModel) Name() string { return "stub" }

func (m stubModel) ExtractText(context.Context, string) (string, error) { return m.reply, nil }

func (m stubModel) ExtractImage(context.Context, string, extraction.Image) (string, error) {
	return m.reply, nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(context.Context, string, io.Reader) (string, error) {
	return "emma by jane austen", nil
}

type harness struct {
	t   *testing.T
	cfg *config.Config
	srv *apiServer
}

func newHarness(t *testing.T, catalog bool) harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	var db *database.DB
	if catalog {
		db = testsupport.MustOpenCatalogDB(t, cfg)
	} else {
		db = testsupport.MustOpenDB(t, cfg)
	}
	svc := api.New(cfg, db, nil,
		api.WithProviders(),
		api.WithModel(stubModel{reply: `{"books":[{"title":"Emma","author":"Jane Austen"}]}`}),
		api.WithTranscriber(stubTranscriber{}),
	)
	return harness{t: t, cfg: cfg, srv: newAPIServer(cfg, svc, nil)}
}

func (h harness) token(userID int64) string {
	h.t.Helper()
	raw, _, err := h.srv.tokens.Mint(userID)
	if err != nil {
		h.t.Fatalf("Mint: %v", err)
	}
	return raw
}

func (h harness) do(method, path string, userID int64, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+h.token(userID))
	}
	w := httptest.NewRecorder()
	h.srv.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	ready := newHarness(t, true)
	w := ready.do(http.MethodGet, "/healthz", 0, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[healthResponse](t, w); got.Status != "ok" || !got.Catalog {
		t.Fatalf("unexpected health %+v", got)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}

	missing := newHarness(t, false)
	w = missing.do(http.MethodGet, "/healthz", 0, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if got := decode[healthResponse](t, w); got.Status != "not_ready" || got.Catalog {
		t.Fatalf("unexpected health %+v", got)
	}
}

func TestRoutesRequireToken(t *testing.T) {
	h := newHarness(t, true)
	w := h.do(http.MethodGet, "/api/v1/pending", 0, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestIngestListConfirmFlow(t *testing.T) {
	h := newHarness(t, true)
	w := h.do(http.MethodPost, "/api/v1/ingest", 3, ingestRequest{Candidates: []queue.Candidate{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "Emma", Author: "Jane Austen"},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("ingest: %d %s", w.Code, w.Body.String())
	}
	if res := decode[queue.EnqueueResult](t, w); res.Queued != 2 {
		t.Fatalf("unexpected ingest result %+v", res)
	}

	w = h.do(http.MethodGet, "/api/v1/pending", 3, nil)
	pending := decode[pendingResponse](t, w)
	if w.Code != http.StatusOK || len(pending.Items) != 2 {
		t.Fatalf("pending: %d %s", w.Code, w.Body.String())
	}

	w = h.do(http.MethodPost, "/api/v1/confirm", 3, confirmRequest{Items: []confirm.Item{{Title: "Dune", Author: "Frank Herbert"}}})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", w.Code, w.Body.String())
	}
	if res := decode[confirm.Result](t, w); res.Confirmed != 1 || res.Details[0].Cleared != 1 {
		t.Fatalf("unexpected confirm result %+v", res)
	}

	w = h.do(http.MethodPost, "/api/v1/confirm/all", 3, nil)
	if res := decode[confirm.Result](t, w); w.Code != http.StatusOK || res.Confirmed != 1 {
		t.Fatalf("confirm all: %d %s", w.Code, w.Body.String())
	}

	w = h.do(http.MethodGet, "/api/v1/pending", 3, nil)
	if pending := decode[pendingResponse](t, w); len(pending.Items) != 0 {
		t.Fatalf("expected empty queue, got %+v", pending.Items)
	}
}

func TestConfirmRejectsEmptyBatch(t *testing.T) {
	h := newHarness(t, true)
	w := h.do(http.MethodPost, "/api/v1/confirm", 3, confirmRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := decode[errorResponse](t, w); got.Kind != services.KindInput || got.RequestID == "" {
		t.Fatalf("unexpected error body %+v", got)
	}
}

func TestEditAndDiscardPending(t *testing.T) {
	h := newHarness(t, true)
	w := h.do(http.MethodPost, "/api/v1/ingest", 5, ingestRequest{Candidates: []queue.Candidate{{Title: "Emma", Author: "Jane Austin"}}})
	res := decode[queue.EnqueueResult](t, w)
	if len(res.Items) != 1 {
		t.Fatalf("unexpected ingest result %s", w.Body.String())
	}
	path := "/api/v1/pending/" + jsonNumber(res.Items[0].ID)

	w = h.do(http.MethodPatch, path, 5, editRequest{Field: "author", Value: "Jane Austen"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}
	if edit := decode[queue.EditResult](t, w); edit.Row == nil || edit.Row.Author != "Jane Austen" {
		t.Fatalf("unexpected edit %s", w.Body.String())
	}

	w = h.do(http.MethodPatch, path, 5, editRequest{Field: "publisher", Value: "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", w.Code)
	}

	w = h.do(http.MethodDelete, path, 6, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign row: expected 403, got %d", w.Code)
	}

	w = h.do(http.MethodDelete, path, 5, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("discard: %d %s", w.Code, w.Body.String())
	}
	if got := decode[discardResponse](t, w); got.Row == nil || got.Row.Status != queue.StatusDiscarded {
		t.Fatalf("unexpected discard %s", w.Body.String())
	}

	w = h.do(http.MethodDelete, "/api/v1/pending/999", 5, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing row: expected 404, got %d", w.Code)
	}
	w = h.do(http.MethodDelete, "/api/v1/pending/abc", 5, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", w.Code)
	}
}

func TestIngestInputText(t *testing.T) {
	h := newHarness(t, true)
	w := h.do(http.MethodPost, "/api/v1/ingest/input", 8, inputRequest{Type: "text", Text: "Just finished Emma"})
	if w.Code != http.StatusOK {
		t.Fatalf("ingest input: %d %s", w.Code, w.Body.String())
	}
	if res := decode[api.IngestResult](t, w); res.Queued != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	w = h.do(http.MethodPost, "/api/v1/ingest/input", 8, inputRequest{Type: "audio"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("json audio: expected 400, got %d", w.Code)
	}
	w = h.do(http.MethodPost, "/api/v1/ingest/input", 8, inputRequest{Type: "image", Image: "ftp://nope"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad image: expected 400, got %d", w.Code)
	}
}

func TestIngestInputMultipartAudio(t *testing.T) {
	h := newHarness(t, true)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("type", "audio"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	part, err := mw.CreateFormFile("file", "memo.m4a")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("fake-audio")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/input", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+h.token(8))
	w := httptest.NewRecorder()
	h.srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("multipart: %d %s", w.Code, w.Body.String())
	}
	res := decode[api.IngestResult](t, w)
	if res.Queued != 1 || res.Transcript != "emma by jane austen" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestYearsWithoutProviders(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(http.MethodPost, "/api/v1/years", 1, yearsRequest{Items: []api.ItemRef{{Title: "Dune", Author: "Frank Herbert"}}})
	if w.Code != http.StatusOK {
		t.Fatalf("years: %d %s", w.Code, w.Body.String())
	}
	if got := decode[yearsResponse](t, w); len(got.Years) != 1 || got.Years[0] != nil {
		t.Fatalf("unexpected years %s", w.Body.String())
	}
}

func TestCatalogRoutesReportNotReady(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(http.MethodGet, "/api/v1/pending", 1, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	got := decode[errorResponse](t, w)
	if got.Kind != services.KindNotReady || !strings.Contains(got.Error, "catalog") {
		t.Fatalf("unexpected error body %+v", got)
	}
}

func TestStatusForKind(t *testing.T) {
	cases := map[string]int{
		services.KindInput:         http.StatusBadRequest,
		services.KindNotFound:      http.StatusNotFound,
		services.KindForbidden:     http.StatusForbidden,
		services.KindConflict:      http.StatusConflict,
		services.KindNotReady:      http.StatusServiceUnavailable,
		services.KindUpstream:      http.StatusBadGateway,
		services.KindTimeout:       http.StatusGatewayTimeout,
		services.KindConfiguration: http.StatusNotImplemented,
		services.KindInternal:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusForKind(kind); got != want {
			t.Fatalf("statusForKind(%q) = %d, want %d", kind, got, want)
		}
	}
}

func jsonNumber(id int64) string {
	payload, _ := json.Marshal(id)
	return string(payload)
}

func TestJSONRoutesBoundBatchSize(t *testing.T) {
	h := newHarness(t, true)
	refs := make([]api.ItemRef, maxBatchItems+1)
	items := make([]confirm.Item, maxBatchItems+1)
	candidates := make([]queue.Candidate, maxBatchItems+1)
	for i := range refs {
		refs[i] = api.ItemRef{Title: "Emma", Author: "Jane Austen"}
		items[i] = confirm.Item{Title: "Emma", Author: "Jane Austen"}
		candidates[i] = queue.Candidate{Title: "Emma", Author: "Jane Austen"}
	}

	tests := []struct {
		name string
		path string
		body any
	}{
		{"years", "/api/v1/years", yearsRequest{Items: refs}},
		{"confirm", "/api/v1/confirm", confirmRequest{Items: items}},
		{"ingest", "/api/v1/ingest", ingestRequest{Candidates: candidates}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodPost, tt.path, 5, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d %s", w.Code, w.Body.String())
			}
			if got := decode[errorResponse](t, w); !strings.Contains(got.Error, "must not exceed") {
				t.Fatalf("unexpected error body %+v", got)
			}
		})
	}
}

func TestJSONRoutesRejectOversizedBody(t *testing.T) {
	h := newHarness(t, true)
	h.srv.maxUpload = 256

	w := h.do(http.MethodPost, "/api/v1/confirm", 5, confirmRequest{Items: []confirm.Item{
		{Title: strings.Repeat("a", 512), Author: "Jane Austen"},
	}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", w.Code, w.Body.String())
	}
	if got := decode[errorResponse](t, w); !strings.Contains(got.Error, "size limit") {
		t.Fatalf("unexpected error body %+v", got)
	}
}
