package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithID(t *testing.T, id string) (string, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) { Success(c, http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if id != "" {
		req.Header.Set(HeaderRequestID, id)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Header().Get(HeaderRequestID), env
}

func TestRequestID_KeepsCallerID(t *testing.T) {
	header, env := requestWithID(t, "edge-7f3a.42_b")
	assert.Equal(t, "edge-7f3a.42_b", header)
	assert.Equal(t, header, env.Metadata.RequestID)
}

func TestRequestID_ReplacesUnsafeIDs(t *testing.T) {
	for _, id := range []string{"", "has space", "line\nbreak", "{json}", strings.Repeat("a", 65)} {
		header, env := requestWithID(t, id)
		_, err := uuid.Parse(header)
		assert.NoError(t, err, "%q should have been replaced", id)
		assert.Equal(t, header, env.Metadata.RequestID)
	}
}
