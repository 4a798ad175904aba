package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/document-explainer/internal/config"
	"github.com/kirillkom/document-explainer/internal/core/domain"
)

const analyzeBody = `{"contractId":"c1","fileUrl":"https://x/doc.pdf","documentType":"employment","readingStyle":"plain"}`

func newAnalyzeRouter(analyzer *analyzerFake, auth *authFake) http.Handler {
	return NewRouter(config.Config{}, analyzer, &contractsFake{}, auth).Handler()
}

func postAnalyze(handler http.Handler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/functions/analyzeDocument", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestAnalyzeWithoutCredentialsReturns401AndDoesNoWork(t *testing.T) {
	analyzer := &analyzerFake{}
	auth := &authFake{}
	handler := newAnalyzeRouter(analyzer, auth)

	for _, token := range []string{"", "forged"} {
		res := postAnalyze(handler, token, analyzeBody)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, res.Code)
		}
		if body := decodeBody(t, res); body["error"] != "Unauthorized" {
			t.Fatalf("unexpected body %v", body)
		}
	}
	if analyzer.calls != 0 || len(analyzer.abandoned) != 0 {
		t.Fatalf("expected no pipeline work, got calls=%d abandoned=%v", analyzer.calls, analyzer.abandoned)
	}
	if auth.calls != 1 {
		t.Fatalf("expected one authenticate call for the forged token, got %d", auth.calls)
	}
}

func TestAnalyzeSuccessReturnsResult(t *testing.T) {
	analyzer := &analyzerFake{result: &domain.AnalysisResult{ReportTitle: "Offer letter explained"}}
	res := postAnalyze(newAnalyzeRouter(analyzer, &authFake{}), validToken, analyzeBody)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	result, _ := body["result"].(map[string]any)
	if body["success"] != true || result["report_title"] != "Offer letter explained" {
		t.Fatalf("unexpected body %v", body)
	}
	if analyzer.identity != alice {
		t.Fatalf("expected caller identity to reach the pipeline, got %+v", analyzer.identity)
	}
	if analyzer.request.ContractID != "c1" || analyzer.request.DocumentType != "employment" {
		t.Fatalf("unexpected request %+v", analyzer.request)
	}
}

func TestAnalyzePipelineFailureReturns500WithDetails(t *testing.T) {
	cause := domain.WrapError(domain.ErrFetchFailed, "fetch file", errors.New("GET https://x/doc.pdf: status 404"))
	analyzer := &analyzerFake{err: cause}
	res := postAnalyze(newAnalyzeRouter(analyzer, &authFake{}), validToken, analyzeBody)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["error"] != domain.ErrFetchFailed.Error() {
		t.Fatalf("unexpected error summary %v", body["error"])
	}
	details, _ := body["details"].(string)
	if !strings.Contains(details, "status 404") {
		t.Fatalf("expected full error chain in details, got %q", details)
	}
	if len(analyzer.abandoned) != 0 {
		t.Fatalf("pipeline failures are cleaned up by the use case, got abandon %v", analyzer.abandoned)
	}
}

func TestAnalyzeUndecodableBodyRecoversContractID(t *testing.T) {
	analyzer := &analyzerFake{}
	res := postAnalyze(newAnalyzeRouter(analyzer, &authFake{}), validToken,
		`{"contractId":"c9","fileUrl":"https://x/doc.pdf","documentType":7}`)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if analyzer.calls != 0 {
		t.Fatalf("expected Analyze not to run, got %d calls", analyzer.calls)
	}
	if len(analyzer.abandoned) != 1 || analyzer.abandoned[0] != "c9" {
		t.Fatalf("expected abandon for c9, got %v", analyzer.abandoned)
	}
}

func TestAnalyzeMalformedJSONAbandonsWithoutID(t *testing.T) {
	analyzer := &analyzerFake{}
	res := postAnalyze(newAnalyzeRouter(analyzer, &authFake{}), validToken, `{"contractId": "c1"`)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if len(analyzer.abandoned) != 1 || analyzer.abandoned[0] != "" {
		t.Fatalf("expected abandon without id, got %v", analyzer.abandoned)
	}
	if body := decodeBody(t, res); body["error"] != domain.ErrInvalidInput.Error() {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRecoverContractID(t *testing.T) {
	cases := map[string]string{
		`{"contractId":" c2 "}`:         "c2",
		`{"contractId":42}`:             "",
		`{"fileUrl":"https://x"}`:       "",
		`not json`:                      "",
		`{"contractId":"c3","x":[1,2]}`: "c3",
	}
	for body, want := range cases {
		if got := recoverContractID([]byte(body)); got != want {
			t.Fatalf("recoverContractID(%s) = %q, want %q", body, got, want)
		}
	}
}
