package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(RequestID(), Logging(logrus.NewEntry(base)))
	router.GET("/api/analyses/:sessionId/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/s1/status", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log json: %v (raw: %s)", err, buf.String())
	}

	for _, key := range []string{"request_id", "method", "path", "status", "duration_ms", "session_id"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["session_id"] != "s1" {
		t.Fatalf("unexpected session_id: %v", payload["session_id"])
	}
	if payload["status"] != float64(http.StatusOK) {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["request_id"] == "" {
		t.Fatal("empty request_id")
	}
}

func TestLoggingSkipsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)

	router := gin.New()
	router.Use(Logging(logrus.NewEntry(base)))
	router.OPTIONS("/api/analyses/:sessionId/start", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyses/s1/start", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if buf.Len() != 0 {
		t.Fatalf("preflight request was logged: %s", buf.String())
	}
}
