package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/service"
)

const (
	ContextAuditLog = "audit_log"
	HeaderRequestID = "X-Request-ID"

	maxAuditBody = 8 << 10
)

// order text may hold private notes
var privateFields = map[string]bool{
	"text":      true,
	"admin_key": true,
	"password":  true,
}

// teeWriter keeps a capped copy of the response body.
type teeWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if room := maxAuditBody - w.buf.Len(); room > 0 {
		if len(b) > room {
			w.buf.Write(b[:room])
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// AuditMiddleware records every state-changing request. Reads pass through untouched.
// Handlers attach shop, auction and amount details with AddAuditContext.
func AuditMiddleware(auditSvc *service.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(HeaderRequestID, reqID)

		var reqBody []byte
		if c.Request.Body != nil {
			reqBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		entry := &model.AuditLog{
			ID:        reqID,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			CreatedAt: time.Now(),
			Context:   make(map[string]interface{}),
		}
		c.Set(ContextAuditLog, entry)

		tee := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tee

		c.Next()

		entry.PlayerID = PlayerID(c)
		entry.StatusCode = c.Writer.Status()
		entry.RequestBody = auditBody(entry.Path, reqBody)
		entry.ResponseBody = auditBody(entry.Path, tee.buf.Bytes())
		entry.LatencyMs = time.Since(entry.CreatedAt).Milliseconds()
		auditSvc.Log(entry)
	}
}

func AddAuditContext(c *gin.Context, key string, value interface{}) {
	v, ok := c.Get(ContextAuditLog)
	if !ok {
		return
	}
	if entry, ok := v.(*model.AuditLog); ok {
		entry.Context[key] = value
	}
}

// auditBody returns the body as stored in the audit trail. Bodies on order and
// audit routes have private fields masked; anything unparsable there is dropped.
func auditBody(path string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxAuditBody {
		body = body[:maxAuditBody]
	}
	if !strings.HasPrefix(path, "/v1/orders") && !strings.HasPrefix(path, "/v1/audit") {
		return string(body)
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "[redacted]"
	}
	out, err := json.Marshal(mask(doc))
	if err != nil {
		return "[redacted]"
	}
	return string(out)
}

func mask(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if privateFields[strings.ToLower(k)] {
				t[k] = "***"
			} else {
				t[k] = mask(val)
			}
		}
	case []interface{}:
		for i := range t {
			t[i] = mask(t[i])
		}
	}
	return v
}
