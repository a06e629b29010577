package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "PriceWatch/pkg/logger"
)

type pingHandler struct{}

type pingRequest struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level" default:"low" validate:"oneof=low high"`
}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/ping", func(c echo.Context) error {
		req := new(pingRequest)
		if errs := ReadAndValidateRequest(c, req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
	g.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("item %s", "x"))
	})
	g.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("plain"))
	})
}

func newTestServer() *Server {
	return NewServer(applogger.Nop(), []Handler{pingHandler{}})
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(newTestServer(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestReadAndValidateRequest(t *testing.T) {
	s := newTestServer()

	t.Run("defaults applied", func(t *testing.T) {
		rec := do(s, http.MethodPost, "/api/ping", `{"name":"a"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data pingRequest `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "low", resp.Data.Level)
	})

	t.Run("required field reported by wire name", func(t *testing.T) {
		rec := do(s, http.MethodPost, "/api/ping", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp struct {
			Data []ValidationError `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "ERR_REQUIRED", resp.Data[0].Code)
		assert.Equal(t, "name", resp.Data[0].Field)
	})

	t.Run("oneof", func(t *testing.T) {
		rec := do(s, http.MethodPost, "/api/ping", `{"name":"a","level":"mid"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "ERR_ONEOF")
	})
}

func TestAppErrorResponse(t *testing.T) {
	s := newTestServer()

	rec := do(s, http.MethodGet, "/api/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	rec = do(s, http.MethodGet, "/api/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
