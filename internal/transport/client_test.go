package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/failure"
	"helpdesk/internal/notify"
	"helpdesk/internal/tokenstore"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAttachesBearerToken(t *testing.T) {
	var got string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]string{"name": "ok"})
	})

	c := New(srv.URL, tokenstore.NewMemory("tok-1"))
	var out struct{ Name string }
	require.NoError(t, c.Get(context.Background(), "/auth/me", &out))
	assert.Equal(t, "Bearer tok-1", got)
	assert.Equal(t, "ok", out.Name)
}

func TestNoTokenNoHeader(t *testing.T) {
	var got string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})
	c := New(srv.URL, tokenstore.NewMemory(""))
	require.NoError(t, c.Delete(context.Background(), "/tickets/1"))
	assert.Empty(t, got)
}

func TestUnauthorizedFiresHookAndNotifies(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
	})
	rec := &notify.Recorder{}
	c := New(srv.URL, tokenstore.NewMemory("old"), WithNotifier(rec))
	calls := 0
	c.OnAuthFailure(func() { calls++ })

	err := c.Get(context.Background(), "/tickets", nil)
	require.Error(t, err)
	assert.Equal(t, failure.AuthenticationFailure, failure.KindOf(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{MsgSessionExpired}, rec.Errors())
	assert.Equal(t, MsgSessionExpired, failure.UserMessage(err))

	err = c.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.c"}, nil, SkipAuthHook())
	assert.True(t, failure.Is(err, failure.AuthenticationFailure))
	assert.Equal(t, 1, calls, "login 401 must not log the session out")
	assert.Len(t, rec.Errors(), 1)
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		code int
		kind failure.Kind
	}{
		{http.StatusBadRequest, failure.ValidationFailure},
		{http.StatusForbidden, failure.AuthorizationDenied},
		{http.StatusNotFound, failure.NotFound},
		{http.StatusConflict, failure.Conflict},
		{http.StatusInternalServerError, failure.ServerFailure},
		{http.StatusBadGateway, failure.ServerFailure},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.code, map[string]string{"error": "nope"})
			})
			c := New(srv.URL, nil)
			err := c.Post(context.Background(), "/x", map[string]int{"a": 1}, nil)
			var fe *failure.Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.kind, fe.Kind)
			assert.Equal(t, tc.code, fe.Status)
			assert.Equal(t, "nope", fe.Message)
		})
	}
}

func TestServerErrorNotifies(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	rec := &notify.Recorder{}
	c := New(srv.URL, nil, WithNotifier(rec))
	err := c.Get(context.Background(), "/tickets", nil)
	assert.True(t, failure.Is(err, failure.ServerFailure))
	assert.Equal(t, []string{MsgServerError}, rec.Errors())
}

func TestNoResponseIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := &notify.Recorder{}
	c := New(url, nil, WithNotifier(rec))
	err := c.Get(context.Background(), "/tickets", nil)
	assert.True(t, failure.Is(err, failure.NetworkFailure))
	assert.Equal(t, []string{MsgNoConnection}, rec.Errors())
}

func TestSendsJSONBody(t *testing.T) {
	var body map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/tickets/4", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"id": 4})
	})
	c := New(srv.URL+"/", nil)
	status := int64(2)
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.Patch(context.Background(), "/tickets/4", struct {
		StatusID *int64 `json:"status_id,omitempty"`
		Assigned *int64 `json:"assigned_to,omitempty"`
	}{StatusID: &status}, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.ID)
	assert.Equal(t, map[string]any{"status_id": float64(2)}, body)
}
