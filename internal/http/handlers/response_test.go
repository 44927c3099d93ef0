package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// envelopeRouter installs a request id and a capturing request logger the
// way RequestID and Logger do in production.
func envelopeRouter(rid string, buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := zerolog.New(buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Set("logger", &logger)
		c.Next()
	})
	return r
}

func Test_fail_ServerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := envelopeRouter("rid-500", &buf)
	r.POST("/runs", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeRunFailed, "chrome not found")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeRunFailed || resp.Message != "chrome not found" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	logged := buf.String()
	if !strings.Contains(logged, `"level":"error"`) || !strings.Contains(logged, `"route":"/runs"`) {
		t.Fatalf("expected error log with route, got: %s", logged)
	}
}

func Test_Fail_ClientErrorIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	r := envelopeRouter("rid-409", &buf)
	r.POST("/runs", func(c *gin.Context) {
		Fail(c, http.StatusConflict, ErrCodeRunInProgress, "a run is already in progress")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.RequestID != "rid-409" || er.Code != ErrCodeRunInProgress {
		t.Fatalf("unexpected body: %+v", er)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx must not be logged: %s", buf.String())
	}
}

func Test_ok_WritesJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ratings/:id", func(c *gin.Context) {
		ok(c, http.StatusOK, gin.H{"external_id": c.Param("id"), "top_critic_average": 92})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratings/EP-1", nil))
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusOK || body["external_id"] != "EP-1" || body["top_critic_average"].(float64) != 92 {
		t.Fatalf("unexpected response %d %#v", w.Code, body)
	}
}

func Test_notModifiedSince(t *testing.T) {
	gin.SetMode(gin.TestMode)
	at := time.Unix(0, 1700000000000000000)
	want := `W/"ratings:12:1700000000000000000:2:20"`

	cases := []struct {
		name     string
		inm      string
		maxTS    *time.Time
		wantETag string
		want304  bool
	}{
		{"no header", "", &at, want, false},
		{"match", want, &at, want, true},
		{"stale", `W/"ratings:11:1:2:20"`, &at, want, false},
		{"empty list", "", nil, `W/"ratings:12:0:2:20"`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hit bool
			r := gin.New()
			r.GET("/ratings", func(c *gin.Context) {
				if hit = notModifiedSince(c, "ratings", 12, tc.maxTS, 2, 20); !hit {
					ok(c, http.StatusOK, gin.H{})
				}
			})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ratings", nil)
			if tc.inm != "" {
				req.Header.Set("If-None-Match", tc.inm)
			}
			r.ServeHTTP(w, req)

			if got := w.Header().Get("ETag"); got != tc.wantETag {
				t.Fatalf("ETag=%q want %q", got, tc.wantETag)
			}
			if hit != tc.want304 {
				t.Fatalf("hit=%v want %v", hit, tc.want304)
			}
			if tc.want304 && (w.Code != http.StatusNotModified || w.Body.Len() != 0) {
				t.Fatalf("want empty 304, got %d %q", w.Code, w.Body.String())
			}
			if !tc.want304 && w.Code != http.StatusOK {
				t.Fatalf("status=%d", w.Code)
			}
		})
	}
}
