package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

// restErrorStatuses is checked in order; the first matching kind wins.
var restErrorStatuses = []struct {
	kind   error
	status int
}{
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrContractNotFound, http.StatusNotFound},
	{domain.ErrAnalysisNotReady, http.StatusConflict},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrTemporary, http.StatusServiceUnavailable},
}

func mapErrorToHTTPStatus(err error) int {
	for _, entry := range restErrorStatuses {
		if domain.IsKind(err, entry.kind) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}

// analysisFailureKinds name the pipeline stage that failed. A fetch that
// timed out is reported as a fetch failure, not as temporary.
var analysisFailureKinds = []error{
	domain.ErrInvalidInput,
	domain.ErrFetchFailed,
	domain.ErrExtractFailed,
	domain.ErrModelOutput,
	domain.ErrTemporary,
	domain.ErrInvalidTransition,
	domain.ErrContractNotFound,
}

// analysisErrorSummary is the short "error" field of a failed analysis
// response; the full chain goes in "details".
func analysisErrorSummary(err error) string {
	for _, kind := range analysisFailureKinds {
		if domain.IsKind(err, kind) {
			return kind.Error()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "analysis timed out"
	}
	return "analysis failed"
}
