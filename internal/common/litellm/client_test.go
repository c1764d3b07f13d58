package litellm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "sk-admin", time.Second, time.Second)
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestGenerateKey_OmitsUnlimitedBudget(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/key/generate", r.URL.Path)
		assert.Equal(t, "Bearer sk-admin", r.Header.Get("Authorization"))
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"key":"sk-new"}`))
	})

	key, err := c.GenerateKey(context.Background(), "+15551234", KeyLimits{MaxParallelRequests: 1, TPMLimit: 1000, RPMLimit: 2})
	require.NoError(t, err)
	assert.Equal(t, "sk-new", key)

	assert.Equal(t, "+15551234", got["key_alias"])
	assert.Equal(t, "30d", got["budget_duration"])
	assert.Equal(t, float64(2), got["rpm_limit"])
	assert.Equal(t, float64(1000), got["tpm_limit"])
	assert.Equal(t, float64(1), got["max_parallel_requests"])
	_, hasBudget := got["max_budget"]
	assert.False(t, hasBudget)
	_, hasKey := got["key"]
	assert.False(t, hasKey)
}

func TestGenerateKey_Failures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad admin key"))
	})
	_, err := c.GenerateKey(context.Background(), "+1", KeyLimits{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "bad admin key", se.Body)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err = c.GenerateKey(context.Background(), "+1", KeyLimits{})
	assert.Error(t, err)
}

func TestUpdateKey_SendsBudget(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/key/update", r.URL.Path)
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{}`))
	})

	budget := 5.0
	err := c.UpdateKey(context.Background(), "sk-1", KeyLimits{MaxBudget: &budget, MaxParallelRequests: 5, TPMLimit: 50000, RPMLimit: 50})
	require.NoError(t, err)
	assert.Equal(t, "sk-1", got["key"])
	assert.Equal(t, 5.0, got["max_budget"])
	assert.Equal(t, float64(50), got["rpm_limit"])
}

func TestDeleteKey(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/key/delete", r.URL.Path)
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"deleted_keys":["sk-1"]}`))
	})

	require.NoError(t, c.DeleteKey(context.Background(), "sk-1"))
	assert.Equal(t, []interface{}{"sk-1"}, got["keys"])
}

func TestSpendLogs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spend/logs", r.URL.Path)
		assert.Equal(t, "sk-1", r.URL.Query().Get("api_key"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`[{"spend":0.1}]`))
	})

	logs, err := c.SpendLogs(context.Background(), "sk-1", 100, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"spend":0.1}]`, string(logs))
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	down := NewClient("http://127.0.0.1:1", "", time.Second, 200*time.Millisecond)
	_, err = down.Health(context.Background())
	assert.Error(t, err)
}
