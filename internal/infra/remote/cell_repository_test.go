package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/infra/remote"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
)

func TestCellRepository_FetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"row":0,"col":0,"color":"#F25022"},{"row":0,"col":1,"color":"#7FBA00"}]`))
	}))
	defer srv.Close()

	repo := remote.NewCellRepository(srv.URL, remote.WithToken("secret"))
	cells, err := repo.FetchAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.Cell{
		{Row: 0, Col: 0, Color: "#F25022"},
		{Row: 0, Col: 1, Color: "#7FBA00"},
	}, cells)
}

func TestCellRepository_FetchAllFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `[]`, repository.ErrTransport},
		{"object instead of list", http.StatusOK, `{"cells":[]}`, repository.ErrMalformedResponse},
		{"null", http.StatusOK, `null`, repository.ErrMalformedResponse},
		{"not json", http.StatusOK, `<html>`, repository.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := remote.NewCellRepository(srv.URL).FetchAll(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCellRepository_ReplaceAll(t *testing.T) {
	var got []domain.Cell
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	repo := remote.NewCellRepository(srv.URL + "/")
	cells := []domain.Cell{{Row: 1, Col: 1, Color: "#FFB900"}}

	require.NoError(t, repo.ReplaceAll(context.Background(), cells))
	assert.Equal(t, cells, got)

	require.NoError(t, repo.ReplaceAll(context.Background(), nil))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCellRepository_ReplaceAllRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := remote.NewCellRepository(srv.URL).ReplaceAll(context.Background(), []domain.Cell{})
	assert.ErrorIs(t, err, repository.ErrTransport)
}

func TestCellRepository_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := remote.NewCellRepository(url).FetchAll(context.Background())
	assert.ErrorIs(t, err, repository.ErrTransport)
}
