package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedClient_GetDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/items", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("first"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"name":"alpha","count":3}`))
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(
		WithBaseURL(srv.URL+"/v1/"),
		WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	require.NoError(t, err)

	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	resp, err := c.NewRequest().SetQueryParam("first", "5").SetResult(&out).Get(context.Background(), "/items")
	require.NoError(t, err)

	assert.False(t, resp.IsError())
	assert.Equal(t, "alpha", out.Name)
	assert.Equal(t, 3, out.Count)
}

func TestInstrumentedClient_ErrorHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(WithBaseURL(srv.URL))
	require.NoError(t, err)

	sentinel := errors.New("bad status")
	resp, err := c.NewRequest(WithResponseErrorHandler(func(status int, body []byte) error {
		if status >= 400 {
			return sentinel
		}
		return nil
	})).Get(context.Background(), "/x")

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, "upstream down", resp.String())
}

func TestInstrumentedClient_DecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(WithBaseURL(srv.URL))
	require.NoError(t, err)

	var out map[string]any
	_, err = c.NewRequest().SetResult(&out).Get(context.Background(), "/x")
	assert.Error(t, err)
}
