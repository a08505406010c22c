package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"comptes/internal/annotations"
	"comptes/internal/categories"
	"comptes/internal/config"
	"comptes/internal/log"
	"comptes/internal/services"
)

const sampleCSV = "dateOp;dateVal;label;category;categoryParent;supplierFound;amount;comment;accountNum;accountLabel;accountbalance\n" +
	"15/01/2024;15/01/2024;Carrefour;Courses;Alimentation;Carrefour;-41,80;;00123;BoursoBank;1 250,00\n" +
	"15/01/2024;15/01/2024;Carrefour;Courses;Alimentation;Carrefour;-41,80;;00123;BoursoBank;1 250,00\n" +
	"20/01/2024;20/01/2024;Virement salaire;Salaire;Revenus;;2 500,00;;00123;BoursoBank;3 750,00\n" +
	"22/01/2024;22/01/2024;Cinema Pathe;Loisirs;Sorties;;-24,00;soiree;00123;BoursoBank;3 726,00\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:           "8080",
		MaxUploadBytes: 1 << 20,
		BatchCacheSize: 10,
		BatchCacheTTL:  time.Minute,
	}
	logger := log.New(log.DefaultConfig())
	statements := services.NewStatementService(nil, nil)

	srv := NewServer(cfg, logger, statements, annotations.NewMemoryStore(), categories.NewMemoryOverrides())
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func multipartCSV(t *testing.T, csv string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "export.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(csv)); err != nil {
		t.Fatalf("write CSV part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func uploadBatch(t *testing.T, srv *Server, csv string) ingestResponse {
	t.Helper()

	body, contentType := multipartCSV(t, csv)
	req := httptest.NewRequest(http.MethodPost, "/api/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp ingestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp
}

func getJSON(t *testing.T, srv *Server, path string, wantStatus int, out any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != wantStatus {
		t.Fatalf("GET %s status = %d, want %d (body: %s)", path, rec.Code, wantStatus, rec.Body.String())
	}
	if out != nil {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode GET %s response: %v", path, err)
		}
	}
}

func TestUploadStatement(t *testing.T) {
	srv := newTestServer(t)
	resp := uploadBatch(t, srv, sampleCSV)

	if resp.BatchID == "" {
		t.Fatal("expected a batch ID")
	}
	if resp.TotalProcessed != 4 {
		t.Errorf("TotalProcessed = %d, want 4", resp.TotalProcessed)
	}
	if resp.Retained != 3 {
		t.Errorf("Retained = %d, want 3", resp.Retained)
	}
	if resp.DuplicatesSkipped != 1 {
		t.Errorf("DuplicatesSkipped = %d, want 1", resp.DuplicatesSkipped)
	}
	if resp.DateFrom != "2024-01-15" || resp.DateTo != "2024-01-22" {
		t.Errorf("date span = %s..%s, want 2024-01-15..2024-01-22", resp.DateFrom, resp.DateTo)
	}
	if len(resp.Transactions) != 3 {
		t.Fatalf("got %d transactions, want 3", len(resp.Transactions))
	}
	if resp.Transactions[0].Amount != -41.8 {
		t.Errorf("first amount = %v, want -41.8", resp.Transactions[0].Amount)
	}
}

func TestUploadStatementMissingFile(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/statements", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestBatchTransactionsFilters(t *testing.T) {
	srv := newTestServer(t)
	batch := uploadBatch(t, srv, sampleCSV)

	t.Run("default view keeps everything", func(t *testing.T) {
		var resp transactionsResponse
		getJSON(t, srv, "/api/batches/"+batch.BatchID+"/transactions", http.StatusOK, &resp)
		if resp.Count != 3 {
			t.Fatalf("count = %d, want 3", resp.Count)
		}
		// default sort is dateOp descending
		if resp.Transactions[0].DateOp != "2024-01-22" {
			t.Errorf("first dateOp = %s, want 2024-01-22", resp.Transactions[0].DateOp)
		}
		if resp.Summary.Totals.Income != 2500 {
			t.Errorf("summary income = %v, want 2500", resp.Summary.Totals.Income)
		}
	})

	t.Run("search matches label", func(t *testing.T) {
		var resp transactionsResponse
		getJSON(t, srv, "/api/batches/"+batch.BatchID+"/transactions?search=carrefour", http.StatusOK, &resp)
		if resp.Count != 1 {
			t.Fatalf("count = %d, want 1", resp.Count)
		}
		if resp.Transactions[0].Label != "Carrefour" {
			t.Errorf("label = %s, want Carrefour", resp.Transactions[0].Label)
		}
	})

	t.Run("date range narrows the view", func(t *testing.T) {
		var resp transactionsResponse
		getJSON(t, srv, "/api/batches/"+batch.BatchID+"/transactions?dateFrom=2024-01-20&dateTo=2024-01-22", http.StatusOK, &resp)
		if resp.Count != 2 {
			t.Fatalf("count = %d, want 2", resp.Count)
		}
	})

	t.Run("essentials mode keeps fixed categories", func(t *testing.T) {
		var resp transactionsResponse
		getJSON(t, srv, "/api/batches/"+batch.BatchID+"/transactions?mode=essentials", http.StatusOK, &resp)
		if resp.Count != 1 {
			t.Fatalf("count = %d, want 1", resp.Count)
		}
		if resp.Transactions[0].CategoryParent != "Alimentation" {
			t.Errorf("categoryParent = %s, want Alimentation", resp.Transactions[0].CategoryParent)
		}
	})

	t.Run("ascending amount sort", func(t *testing.T) {
		var resp transactionsResponse
		getJSON(t, srv, "/api/batches/"+batch.BatchID+"/transactions?sort=amount&dir=asc", http.StatusOK, &resp)
		if resp.Transactions[0].Amount != -41.8 {
			t.Errorf("first amount = %v, want -41.8", resp.Transactions[0].Amount)
		}
		if resp.Transactions[2].Amount != 2500 {
			t.Errorf("last amount = %v, want 2500", resp.Transactions[2].Amount)
		}
	})
}

func TestBatchTransactionsNotFound(t *testing.T) {
	srv := newTestServer(t)
	getJSON(t, srv, "/api/batches/missing/transactions", http.StatusNotFound, nil)
}

func TestBatchSummary(t *testing.T) {
	srv := newTestServer(t)
	batch := uploadBatch(t, srv, sampleCSV)

	var resp summaryResponse
	getJSON(t, srv, "/api/batches/"+batch.BatchID+"/summary", http.StatusOK, &resp)

	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}
	if resp.Totals.Expenses != 65.8 {
		t.Errorf("expenses = %v, want 65.8", resp.Totals.Expenses)
	}
	if resp.Totals.Income != 2500 {
		t.Errorf("income = %v, want 2500", resp.Totals.Income)
	}
	if resp.Totals.Net != 2434.2 {
		t.Errorf("net = %v, want 2434.2", resp.Totals.Net)
	}
	if resp.Essentials.Essential != 41.8 {
		t.Errorf("essential = %v, want 41.8", resp.Essentials.Essential)
	}
	if resp.Essentials.NonEssential != 24 {
		t.Errorf("nonEssential = %v, want 24", resp.Essentials.NonEssential)
	}
	if len(resp.ByCategory.Expenses) != 2 {
		t.Fatalf("expense categories = %d, want 2", len(resp.ByCategory.Expenses))
	}
	if resp.ByCategory.Expenses[0].CategoryParent != "Alimentation" {
		t.Errorf("top expense category = %s, want Alimentation", resp.ByCategory.Expenses[0].CategoryParent)
	}
}

func TestAnnotationLifecycle(t *testing.T) {
	srv := newTestServer(t)
	key := "2024-01-15-Carrefour--41.8-00123"

	var initial annotationResponse
	getJSON(t, srv, "/api/annotations/"+key, http.StatusOK, &initial)
	if initial.Flagged || initial.Note != "" {
		t.Fatalf("expected zero annotation, got %+v", initial)
	}

	body := strings.NewReader(`{"flagged": true}`)
	req := httptest.NewRequest(http.MethodPut, "/api/annotations/"+key, body)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", rec.Code, http.StatusOK)
	}

	body = strings.NewReader(`{"note": "abonnement"}`)
	req = httptest.NewRequest(http.MethodPut, "/api/annotations/"+key, body)
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", rec.Code, http.StatusOK)
	}

	// the partial note update must not reset the flag
	var final annotationResponse
	getJSON(t, srv, "/api/annotations/"+key, http.StatusOK, &final)
	if !final.Flagged {
		t.Error("expected flag to survive the note update")
	}
	if final.Note != "abonnement" {
		t.Errorf("note = %q, want %q", final.Note, "abonnement")
	}
}

func TestAnnotationKeyWithSlashes(t *testing.T) {
	srv := newTestServer(t)

	// Card labels carry dates, so the identity key holds slashes and must be
	// percent-encoded to fit the single path segment.
	key := "2024-01-15-CARTE 15/01/24 CARREFOUR--41.8-00123"
	path := "/api/annotations/" + url.PathEscape(key)

	body := strings.NewReader(`{"flagged": true}`)
	req := httptest.NewRequest(http.MethodPut, path, body)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", rec.Code, http.StatusOK)
	}

	var ann annotationResponse
	getJSON(t, srv, path, http.StatusOK, &ann)
	if ann.Key != key {
		t.Errorf("key = %q, want %q", ann.Key, key)
	}
	if !ann.Flagged {
		t.Error("expected flag to round-trip through the encoded key")
	}
}

func TestEssentialsOverrides(t *testing.T) {
	srv := newTestServer(t)

	var initial essentialsResponse
	getJSON(t, srv, "/api/essentials", http.StatusOK, &initial)
	if len(initial.Fixed) == 0 {
		t.Fatal("expected fixed essential categories")
	}
	if len(initial.Custom) != 0 {
		t.Fatalf("expected no custom categories, got %v", initial.Custom)
	}

	body := strings.NewReader(`{"custom": ["Sorties"]}`)
	req := httptest.NewRequest(http.MethodPut, "/api/essentials", body)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", rec.Code, http.StatusOK)
	}

	var updated essentialsResponse
	getJSON(t, srv, "/api/essentials", http.StatusOK, &updated)
	if len(updated.Custom) != 1 || updated.Custom[0] != "Sorties" {
		t.Fatalf("custom = %v, want [Sorties]", updated.Custom)
	}

	// the override now classes Sorties as essential in summaries
	batch := uploadBatch(t, srv, sampleCSV)
	var summary summaryResponse
	getJSON(t, srv, "/api/batches/"+batch.BatchID+"/summary", http.StatusOK, &summary)
	if summary.Essentials.Essential != 65.8 {
		t.Errorf("essential = %v, want 65.8", summary.Essentials.Essential)
	}
}

func TestToggleEssential(t *testing.T) {
	srv := newTestServer(t)

	toggle := func() essentialsResponse {
		t.Helper()
		req := httptest.NewRequest(http.MethodPut, "/api/essentials/Sorties", nil)
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("PUT status = %d, want %d", rec.Code, http.StatusOK)
		}
		var resp essentialsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode toggle response: %v", err)
		}
		return resp
	}

	added := toggle()
	if len(added.Custom) != 1 || added.Custom[0] != "Sorties" {
		t.Fatalf("custom after add = %v, want [Sorties]", added.Custom)
	}

	removed := toggle()
	if len(removed.Custom) != 0 {
		t.Fatalf("custom after remove = %v, want empty", removed.Custom)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	getJSON(t, srv, "/healthz", http.StatusOK, nil)

	var ready struct {
		Status string `json:"status"`
	}
	getJSON(t, srv, "/readyz", http.StatusOK, &ready)
	if ready.Status != "ready" {
		t.Errorf("status = %q, want %q", ready.Status, "ready")
	}
}
