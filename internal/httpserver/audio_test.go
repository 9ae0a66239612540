package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioURLMissingObject(t *testing.T) {
	e := newTestEnv()
	e.audio.missing = true
	token := e.accessToken("user-1", "a@b.c")

	// Genesis 1 is in the availability table but absent from the bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/audio/aria/genesis/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := e.do(req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUploadAudioRecording(t *testing.T) {
	e := newTestEnv()

	body := []byte("mp3-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/admin/audio/aria/genesis/1", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAdminSecret)
	rr := e.do(req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, body, e.audio.uploaded["aria/genesis/1.mp3"])
	assert.Contains(t, rr.Body.String(), "aria/genesis/1.mp3")
}

func TestUploadAudioVerseRecording(t *testing.T) {
	e := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/audio/heartsease/john/3?verse=16", bytes.NewReader([]byte("x")))
	req.Header.Set("Authorization", "Bearer "+testAdminSecret)
	rr := e.do(req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, e.audio.uploaded, "heartsease/john/3/16.mp3")
}

func TestUploadAudioRequiresSecret(t *testing.T) {
	e := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/audio/aria/genesis/1", bytes.NewReader([]byte("x")))
	rr := e.do(req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, e.audio.uploaded)
}

func TestUploadAudioEmptyBody(t *testing.T) {
	e := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/audio/aria/genesis/1", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminSecret)
	rr := e.do(req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteAudioRecording(t *testing.T) {
	e := newTestEnv()

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/audio/aria/genesis/1", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminSecret)
	rr := e.do(req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"aria/genesis/1.mp3"}, e.audio.deleted)
}
