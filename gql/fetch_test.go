package gql_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafast-dev/grafast/gql"
)

func TestFetchSchemaSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"sdl":"type Query { hello: String }"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	schema, err := gql.FetchSchema(context.Background(), "remote", srv.URL, &http.Client{}, gql.FetchOption{Attempts: 1, Timeout: "5s"})
	require.NoError(t, err)
	require.NotNil(t, schema.Raw().Query)
}

func TestFetchSchemaNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := gql.FetchSchema(context.Background(), "remote", srv.URL, &http.Client{}, gql.FetchOption{Attempts: 1, Timeout: "5s"})
	require.Error(t, err)
}

func TestFetchSchemaEmptySDL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"sdl":""}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := gql.FetchSchema(context.Background(), "remote", srv.URL, &http.Client{}, gql.FetchOption{Attempts: 1, Timeout: "5s"})
	require.Error(t, err)
}

func TestFetchSchemaRetriesUntilSuccess(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"sdl":"type Query { hello: String }"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := gql.FetchSchema(context.Background(), "remote", srv.URL, &http.Client{}, gql.FetchOption{Attempts: 3, Timeout: "5s"})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestFetchSchemaRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := gql.FetchSchema(context.Background(), "remote", srv.URL, &http.Client{}, gql.FetchOption{Attempts: 2, Timeout: "5s"})
	require.Error(t, err)
}

func TestFetchSchemaTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"sdl":"type Query { ok: Boolean }"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := gql.FetchSchema(context.Background(), "remote", srv.URL, &http.Client{}, gql.FetchOption{Attempts: 1, Timeout: "50ms"})
	require.Error(t, err)
}
