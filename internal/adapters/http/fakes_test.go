package httpadapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/core/ports"
)

const validToken = "good-token"

var alice = domain.Identity{UserID: "alice@example.com", Email: "alice@example.com"}

type authFake struct {
	calls int
}

func (f *authFake) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	f.calls++
	if token != validToken {
		return domain.Identity{}, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("bad token"))
	}
	return alice, nil
}

type analyzerFake struct {
	mu        sync.Mutex
	result    *domain.AnalysisResult
	err       error
	calls     int
	identity  domain.Identity
	request   domain.AnalysisRequest
	abandoned []string
}

func (f *analyzerFake) Analyze(_ context.Context, identity domain.Identity, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.identity = identity
	f.request = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *analyzerFake) Abandon(_ context.Context, contractID string, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, contractID)
}

type contractsFake struct {
	contract   *domain.Contract
	items      []domain.Contract
	comparison *domain.Comparison
	fileURL    string
	err        error

	draft      ports.ContractDraft
	filter     domain.ContractFilter
	sort       domain.ContractSort
	uploadName string
	uploadBody string
	renamedTo  string
	deletedID  string
}

func (f *contractsFake) Get(_ context.Context, _ domain.Identity, id string) (*domain.Contract, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := *f.contract
	c.ID = id
	return &c, nil
}

func (f *contractsFake) List(_ context.Context, _ domain.Identity, filter domain.ContractFilter, sort domain.ContractSort) ([]domain.Contract, error) {
	f.filter, f.sort = filter, sort
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *contractsFake) Upload(_ context.Context, _ domain.Identity, filename, _ string, _ int64, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploadName, f.uploadBody = filename, string(raw)
	return f.fileURL, nil
}

func (f *contractsFake) Submit(_ context.Context, _ domain.Identity, draft ports.ContractDraft) (*domain.Contract, error) {
	f.draft = draft
	if f.err != nil {
		return nil, f.err
	}
	return f.contract, nil
}

func (f *contractsFake) Rename(_ context.Context, _ domain.Identity, _ string, name string) (*domain.Contract, error) {
	f.renamedTo = name
	if f.err != nil {
		return nil, f.err
	}
	c := *f.contract
	c.ContractName = name
	return &c, nil
}

func (f *contractsFake) Delete(_ context.Context, _ domain.Identity, id string) error {
	f.deletedID = id
	return f.err
}

func (f *contractsFake) Compare(_ context.Context, _ domain.Identity, _, _ string) (*domain.Comparison, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.comparison, nil
}

func (f *contractsFake) Export(_ context.Context, _ domain.Identity, _ string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK-xlsx"))
	return err
}

type filesFake struct {
	content map[string]string
}

func (f filesFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.content[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrContractNotFound, "open file", errors.New(key))
	}
	return io.NopCloser(strings.NewReader(body)), nil
}
