package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUsesTaggedStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("wrapped: %w", WithStatus(http.StatusConflict, errors.New("busy"))))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusConflict, body.Code)
	assert.Equal(t, "wrapped: busy", body.Message)

	rec = httptest.NewRecorder()
	Error(rec, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Prompt string `json:"prompt"`
	}
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"prompt":"hi"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "hi", v.Prompt)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"prompt":"hi","extra":1}`))
	err := DecodeJSON(req, &v)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(``))
	assert.Error(t, DecodeJSON(req, &v))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&bad=x", nil)
	assert.Equal(t, 5, QueryInt(req, "limit", 20))
	assert.Equal(t, 20, QueryInt(req, "bad", 20))
	assert.Equal(t, 20, QueryInt(req, "missing", 20))
}

func TestWithStatusNil(t *testing.T) {
	assert.NoError(t, WithStatus(http.StatusBadRequest, nil))
}
