package pubchem

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSuccess(t *testing.T) {
	var gotPath, gotQuery, gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"IdentifierList":{"CID":[2244]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/rest/pug/", "test-agent", srv.Client())
	body, err := c.Get(context.Background(), "/compound/name/aspirin/cids/JSON", url.Values{"MaxRecords": {"5"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"IdentifierList":{"CID":[2244]}}`, string(body))
	assert.Equal(t, "/rest/pug/compound/name/aspirin/cids/JSON", gotPath)
	assert.Equal(t, "MaxRecords=5", gotQuery)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "application/json", gotAccept)
}

func TestGetEscapedPathSurvives(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", nil)
	_, err := c.Get(context.Background(), "compound/name/"+url.PathEscape("acetic acid")+"/cids/JSON", nil)
	require.NoError(t, err)
	assert.Equal(t, "/compound/name/acetic%20acid/cids/JSON", gotPath)
}

func TestGetNotFoundCarriesFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"Fault":{"Code":"PUGREST.NotFound","Message":"No CID found","Details":["No CID found that matches the given name"]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", srv.Client())
	_, err := c.Get(context.Background(), "/compound/cid/999999999/JSON", nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.NotNil(t, se.Fault)
	assert.Equal(t, "PUGREST.NotFound", se.Fault.Code)
	assert.Contains(t, se.Error(), "No CID found")
}

func TestGetServerErrorWithoutFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("busy"))
	}))
	defer srv.Close()

	c := New(srv.URL, "", srv.Client())
	_, err := c.Get(context.Background(), "/compound/cid/1/JSON", nil)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Nil(t, se.Fault)
	assert.Equal(t, "busy", string(se.Body))
	assert.False(t, IsNotFound(err))
}

func TestGetTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, "", &http.Client{Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.Get(context.Background(), "/compound/cid/1/JSON", nil)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Timeout())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGetContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(srv.URL, "", srv.Client())
	_, err := c.Get(ctx, "/compound/cid/1/JSON", nil)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, te.Timeout())
}
