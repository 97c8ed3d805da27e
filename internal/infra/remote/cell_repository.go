package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
)

const maxBodyBytes = 8 << 20

// CellRepository talks to a grid API that serves the cell list with GET
// and replaces it with POST on the same URL.
type CellRepository struct {
	url    string
	token  string
	client *http.Client
}

type Option func(*CellRepository)

// WithToken sends the token as a Bearer Authorization header on every request.
func WithToken(token string) Option {
	return func(r *CellRepository) { r.token = token }
}

func WithHTTPClient(client *http.Client) Option {
	return func(r *CellRepository) {
		if client != nil {
			r.client = client
		}
	}
}

func NewCellRepository(url string, opts ...Option) *CellRepository {
	r := &CellRepository{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CellRepository) FetchAll(ctx context.Context) ([]domain.Cell, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := r.do(req)
	if err != nil {
		return nil, err
	}

	var cells []domain.Cell
	if err := json.Unmarshal(body, &cells); err != nil {
		return nil, fmt.Errorf("remote: response is not a cell list: %v: %w", err, repository.ErrMalformedResponse)
	}
	if cells == nil {
		// A JSON null decodes without error but is not a list.
		return nil, fmt.Errorf("remote: response is null: %w", repository.ErrMalformedResponse)
	}
	return cells, nil
}

func (r *CellRepository) ReplaceAll(ctx context.Context, cells []domain.Cell) error {
	if cells == nil {
		cells = []domain.Cell{}
	}
	payload, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("remote: failed to encode cells: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("remote: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = r.do(req)
	return err
}

func (r *CellRepository) do(req *http.Request) ([]byte, error) {
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %v: %w", req.Method, r.url, err, repository.ErrTransport)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	logrus.WithFields(logrus.Fields{
		"method":  req.Method,
		"url":     r.url,
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("remote: request finished")
	if err != nil {
		return nil, fmt.Errorf("remote: reading %s response: %v: %w", req.Method, err, repository.ErrTransport)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote: %s %s returned %d: %w", req.Method, r.url, resp.StatusCode, repository.ErrTransport)
	}
	return body, nil
}
