package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer_UploadDownload(t *testing.T) {
	var stored []byte
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			gotType = r.Header.Get("Content-Type")
			stored, _ = io.ReadAll(r.Body)
		case http.MethodGet:
			_, _ = w.Write(stored)
		}
	}))
	defer srv.Close()

	tr := NewTransfer(srv.Client())
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	put := &api.Capability{Method: http.MethodPut, URL: srv.URL + "/k", Header: http.Header{"Content-Type": {"text/plain"}}, ExpiresAt: exp}
	require.NoError(t, tr.Upload(ctx, put, []byte("sealed")))
	assert.Equal(t, "text/plain", gotType)

	get := &api.Capability{Method: http.MethodGet, URL: srv.URL + "/k", ExpiresAt: exp}
	data, err := tr.Download(ctx, get)
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed"), data)
}

func TestTransfer_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	tr := NewTransfer(srv.Client())
	ctx := context.Background()

	assert.Error(t, tr.Upload(ctx, &api.Capability{Method: http.MethodPut, URL: srv.URL}, []byte("x")))

	_, err := tr.Download(ctx, &api.Capability{Method: http.MethodGet, URL: srv.URL})
	assert.Error(t, err)

	expired := &api.Capability{Method: http.MethodGet, URL: srv.URL, ExpiresAt: time.Now().Add(-time.Minute)}
	_, err = tr.Download(ctx, expired)
	assert.ErrorContains(t, err, "expired")

	assert.Error(t, tr.Upload(ctx, nil, nil))
}
