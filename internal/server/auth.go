package server

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	cronKeyHeader = "x-cron-key"
	cronKeyQuery  = "key"
	maxAuthBody   = 64 << 10
)

// CronKeyAuth guards trigger endpoints with a shared secret. The key is taken
// from the x-cron-key header, then the key query parameter, then a JSON body
// field "key"; the first non-empty one is compared. An empty secret disables
// the check.
func CronKeyAuth(secret string) echo.MiddlewareFunc {
	secretBytes := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(secretBytes) == 0 {
				return next(c)
			}
			provided := []byte(providedKey(c))
			if len(provided) == 0 || subtle.ConstantTimeCompare(provided, secretBytes) != 1 {
				return c.JSON(http.StatusUnauthorized, errorResponse{OK: false, Error: "unauthorized"})
			}
			return next(c)
		}
	}
}

func providedKey(c echo.Context) string {
	req := c.Request()
	if v := strings.TrimSpace(req.Header.Get(cronKeyHeader)); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.QueryParam(cronKeyQuery)); v != "" {
		return v
	}
	return bodyKey(req)
}

// bodyKey reads {"key": "..."} and restores the body for later handlers.
func bodyKey(req *http.Request) string {
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(req.Body, maxAuthBody))
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Key)
}
