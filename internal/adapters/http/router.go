package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/document-explainer/internal/config"
	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/core/ports"
	"github.com/kirillkom/document-explainer/internal/observability/metrics"
)

const (
	serviceName       = "api"
	maxAnalyzeBody    = 1 << 20
	maxMultipartInMem = 8 << 20
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileOpener serves stored uploads back over /files/ when the storage
// backend has no URLs of its own.
type FileOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Router struct {
	analyzer  ports.DocumentAnalyzer
	contracts ports.ContractService
	auth      ports.Authenticator
	files     FileOpener
	metrics   *metrics.HTTPServerMetrics

	analysisTimeout  time.Duration
	maxUploadBytes   int64
	rateLimitRPS     float64
	rateLimitBurst   int
	backpressureMax  int
	backpressureWait time.Duration
}

func NewRouter(
	cfg config.Config,
	analyzer ports.DocumentAnalyzer,
	contracts ports.ContractService,
	auth ports.Authenticator,
) *Router {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 50 << 20
	}
	return &Router{
		analyzer:         analyzer,
		contracts:        contracts,
		auth:             auth,
		analysisTimeout:  cfg.AnalysisTimeout,
		maxUploadBytes:   maxUpload,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		backpressureMax:  cfg.APIBackpressureMaxInFlight,
		backpressureWait: cfg.APIBackpressureWait,
	}
}

// WithFiles enables GET /files/{key...}.
func (rt *Router) WithFiles(files FileOpener) *Router {
	rt.files = files
	return rt
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	if rt.files != nil {
		mux.HandleFunc("GET /files/{key...}", rt.serveFile)
	}

	mux.Handle("POST /functions/analyzeDocument", rt.requireIdentity(rt.analyzeDocument))

	mux.Handle("POST /v1/uploads", rt.requireIdentity(rt.uploadFile))
	mux.Handle("POST /v1/contracts", rt.requireIdentity(rt.submitContract))
	mux.Handle("GET /v1/contracts", rt.requireIdentity(rt.listContracts))
	mux.Handle("GET /v1/contracts/{id}", rt.requireIdentity(rt.getContract))
	mux.Handle("PATCH /v1/contracts/{id}", rt.requireIdentity(rt.renameContract))
	mux.Handle("DELETE /v1/contracts/{id}", rt.requireIdentity(rt.deleteContract))
	mux.Handle("GET /v1/contracts/{id}/report.xlsx", rt.requireIdentity(rt.exportContract))
	mux.Handle("GET /v1/compare", rt.requireIdentity(rt.compareContracts))

	var handler http.Handler = mux
	if rt.backpressureMax > 0 {
		handler = backpressureMiddleware(handler, rt.backpressureMax, rt.backpressureWait)
	}
	if rt.rateLimitRPS > 0 {
		handler = rt.rateLimitMiddleware(handler, rate.NewLimiter(rate.Limit(rt.rateLimitRPS), rt.rateLimitBurst))
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyzeDocument keeps the function-style contract: 200 {success, result},
// 401 {error} or 500 {error, details}.
func (rt *Router) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAnalyzeBody))
	if err != nil {
		rt.analyzer.Abandon(r.Context(), "", err)
		writeAnalysisFailure(w, r, err)
		return
	}

	var req domain.AnalysisRequest
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		err = domain.WrapError(domain.ErrInvalidInput, "decode analysis request", err)
		rt.analyzer.Abandon(r.Context(), recoverContractID(body), err)
		writeAnalysisFailure(w, r, err)
		return
	}

	ctx := r.Context()
	if rt.analysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.analysisTimeout)
		defer cancel()
	}

	result, err := rt.analyzer.Analyze(ctx, identity, req)
	if err != nil {
		if domain.IsKind(err, domain.ErrUnauthorized) {
			writeUnauthorized(w)
			return
		}
		writeAnalysisFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}

// recoverContractID reads contractId from a body that did not decode into
// an AnalysisRequest, e.g. because another field had the wrong type.
func recoverContractID(body []byte) string {
	var loose map[string]json.RawMessage
	if err := json.Unmarshal(body, &loose); err != nil {
		return ""
	}
	var id string
	if err := json.Unmarshal(loose["contractId"], &id); err != nil {
		return ""
	}
	return strings.TrimSpace(id)
}

func writeAnalysisFailure(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("analyze_document_failed",
		"request_id", requestIDFromContext(r.Context()),
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   analysisErrorSummary(err),
		"details": err.Error(),
	})
}

func (rt *Router) uploadFile(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartInMem); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	fileURL, err := rt.contracts.Upload(
		r.Context(),
		identity,
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file_url": fileURL})
}

func (rt *Router) submitContract(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())

	var draft ports.ContractDraft
	if err := json.NewDecoder(io.LimitReader(r.Body, maxAnalyzeBody)).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	contract, err := rt.contracts.Submit(r.Context(), identity, draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, contract)
}

func (rt *Router) listContracts(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())

	query := r.URL.Query()
	filter := domain.ContractFilter{
		Status:       domain.ContractStatus(strings.TrimSpace(query.Get("status"))),
		DocumentType: domain.DocumentType(strings.TrimSpace(query.Get("type"))),
		NameQuery:    query.Get("q"),
	}
	sort := domain.ParseContractSort(query.Get("sort"))

	items, err := rt.contracts.List(r.Context(), identity, filter, sort)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracts": items})
}

func (rt *Router) getContract(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())

	contract, err := rt.contracts.Get(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (rt *Router) renameContract(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())

	var req struct {
		ContractName string `json:"contract_name"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxAnalyzeBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	contract, err := rt.contracts.Rename(r.Context(), identity, r.PathValue("id"), req.ContractName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (rt *Router) deleteContract(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())

	if err := rt.contracts.Delete(r.Context(), identity, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) exportContract(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())
	id := r.PathValue("id")

	var buf bytes.Buffer
	if err := rt.contracts.Export(r.Context(), identity, id, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+sanitizeHeaderValue(id)+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) compareContracts(w http.ResponseWriter, r *http.Request) {
	identity, _ := domain.IdentityFromContext(r.Context())

	query := r.URL.Query()
	comparison, err := rt.contracts.Compare(r.Context(), identity, query.Get("a"), query.Get("b"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (rt *Router) serveFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	f, err := rt.files.Open(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if strings.EqualFold(path.Ext(key), ".pdf") {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		slog.Warn("serve_file_interrupted", "key", key, "error", err)
	}
}

func sanitizeHeaderValue(v string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
