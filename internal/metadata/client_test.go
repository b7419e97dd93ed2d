package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLyrics_Success(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("[00:01.00]hello"))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithToken("secret"))
	text, err := c.Lyrics(context.Background(), "Artist/Album #1/01 Song?.flac")

	require.NoError(t, err)
	assert.Equal(t, "[00:01.00]hello", text)
	assert.Equal(t, "/lyrics/Artist/Album%20%231/01%20Song%3F.flac", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestLyrics_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(srv.URL).Lyrics(context.Background(), "a/b.mp3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLyrics_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Lyrics(context.Background(), "a/b.mp3")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestReportPlay_Success(t *testing.T) {
	var gotMethod, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		assert.Equal(t, "/updatePlayCount", r.URL.Path)
		var body struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotID = body.ID
		_ = json.NewEncoder(w).Encode(PlayCount{ID: body.ID, Plays: 7})
	}))
	defer srv.Close()

	plays, err := New(srv.URL).ReportPlay(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, 7, plays)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "t1", gotID)
}

func TestReportPlay_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"subject":"track","body":"unknown id"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ReportPlay(context.Background(), "nope")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "track", apiErr.Subject)
	assert.Equal(t, "unknown id", apiErr.Body)
	assert.Equal(t, "metadata service: track: unknown id", apiErr.Error())
}

func TestReportPlay_PlainErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ReportPlay(context.Background(), "t1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad gateway", apiErr.Body)
}

func TestReportPlay_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := New(srv.URL).ReportPlay(context.Background(), "t1")
	assert.Error(t, err)
}
