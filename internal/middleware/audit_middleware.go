package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	apiPrefix       = "/api/v1/"
	maxAuditedBody  = 64 << 10
	auditIDParam    = "id"
	auditClientPath = "clientId"
)

// AuditMiddleware records every successful mutating request. Write failures
// are logged and never affect the response.
func AuditMiddleware(audit services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil && c.Request.Method != http.MethodDelete {
			raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAuditedBody+1))
			if err != nil {
				utils.LogWarn(err, "AuditMiddleware: failed to read request body")
			}
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), c.Request.Body))
			if len(raw) <= maxAuditedBody {
				body = raw
			}
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		entry := &models.AuditLog{
			Action:     c.Request.Method + " " + routeOf(c),
			EntityType: entityType(c.Request.URL.Path),
			IPAddress:  c.ClientIP(),
		}
		if raw, ok := c.Get(utils.CtxUserID); ok {
			if id, ok := raw.(int64); ok {
				entry.UserID = &id
			}
		}
		if id := c.Param(auditIDParam); id != "" {
			entry.EntityID = &id
		} else if id := c.Param(auditClientPath); id != "" {
			entry.EntityID = &id
		}
		if values := redactedBody(body); values != nil {
			entry.NewValues = values
		}

		if err := audit.Record(c.Request.Context(), entry); err != nil {
			utils.LogWarn(err, "AuditMiddleware: failed to record audit log", map[string]interface{}{
				"action": entry.Action,
			})
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}

// secretKeyParts mark body fields that never reach the audit trail, matched
// case-insensitively as substrings of the key.
var secretKeyParts = []string{"password", "token", "secret"}

// redactedBody returns body with every secret field removed at any depth,
// or nil when body is empty or not JSON.
func redactedBody(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}
	out, err := json.Marshal(stripSecrets(doc))
	if err != nil {
		return nil
	}
	return out
}

func stripSecrets(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		for k, child := range node {
			if isSecretKey(k) {
				delete(node, k)
				continue
			}
			node[k] = stripSecrets(child)
		}
	case []interface{}:
		for i, child := range node {
			node[i] = stripSecrets(child)
		}
	}
	return v
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

// entityType is the first path segment after the API prefix, e.g. "clients".
func entityType(path string) string {
	rest := strings.TrimPrefix(path, apiPrefix)
	if rest == path {
		rest = strings.TrimPrefix(path, "/")
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "unknown"
	}
	return rest
}
