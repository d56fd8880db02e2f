package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPCatalog_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/internal/p-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"_id":"p-1","name":"Keyboard","image":"/k.jpg","price":49.9}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewHTTPCatalog(srv.URL+"/", srv.Client(), zap.NewNop())
	found, err := c.Resolve(context.Background(), []string{"p-1", "p-2", "p-1"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Keyboard", found["p-1"].Name)
	assert.Equal(t, "49.90", found["p-1"].Price.String())
}

func TestHTTPCatalog_OpensBreakerOnFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPCatalog(srv.URL, srv.Client(), zap.NewNop())
	for i := 0; i < 5; i++ {
		_, err := c.Resolve(context.Background(), []string{"p-1"})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "503"))
	}

	_, err := c.Resolve(context.Background(), []string{"p-1"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
}
