package birdchat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cydxin/birdchat/response"
	"github.com/cydxin/birdchat/service"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*ChatEngine, *gin.Engine, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := newEngine(&Config{RDB: rdb, TablePrefix: "im_", Logger: zap.NewNop()})
	gin.SetMode(gin.TestMode)
	r := gin.New()
	e.RegisterRoutes(r.Group("/api/v1"))
	return e, r, rdb
}

func do(r http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestCodeOf(t *testing.T) {
	code, msg := codeOf(fmt.Errorf("wrap: %w", service.ErrUserMuted))
	assert.Equal(t, response.CodeUserMuted, code)
	assert.Equal(t, service.ErrUserMuted.Error(), msg)

	code, msg = codeOf(fmt.Errorf("dial tcp 10.0.0.1:3306: refused"))
	assert.Equal(t, response.CodeInternalError, code)
	assert.Equal(t, "internal error", msg)

	for _, e := range errorCodes {
		c, _ := codeOf(e.err)
		assert.Equal(t, e.code, c, e.err.Error())
	}
}

func TestLogin_BadBody(t *testing.T) {
	_, r, _ := newTestEngine(t)

	w, resp := do(r, http.MethodPost, "/api/v1/session", "", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)

	w, resp = do(r, http.MethodPost, "/api/v1/session", "", `{"user_id":"  "}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestAuthRequired(t *testing.T) {
	_, r, _ := newTestEngine(t)

	for _, p := range []string{"/api/v1/users/me", "/api/v1/group_channels", "/api/v1/users"} {
		w, _ := do(r, http.MethodGet, p, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)
		w, _ = do(r, http.MethodGet, p, "nope", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)
	}
}

func TestServeWS_Unauthorized(t *testing.T) {
	_, r, _ := newTestEngine(t)
	w, resp := do(r, http.MethodGet, "/api/v1/ws?token=nope", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.CodeTokenInvalid, resp.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	_, r, rdb := newTestEngine(t)
	token, err := service.NewTokenService(rdb).Issue(context.Background(), 7)
	require.NoError(t, err)

	w, resp := do(r, http.MethodDelete, "/api/v1/session", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	w, _ = do(r, http.MethodDelete, "/api/v1/session", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueryList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/?user_ids=a,b&user_ids=c&user_ids=,+", nil)
	assert.Equal(t, []string{"a", "b", "c"}, queryList(ctx, "user_ids"))
	assert.Nil(t, queryList(ctx, "missing"))
}

func TestRegisterStatic(t *testing.T) {
	dir := t.TempDir()
	e := newEngine(&Config{Logger: zap.NewNop(), Upload: service.UploadConfig{Dir: dir, URLPrefix: "files"}})
	assert.Equal(t, dir, e.staticDirs["/files"])

	cdn := newEngine(&Config{Logger: zap.NewNop(), Upload: service.UploadConfig{Dir: dir, URLPrefix: "https://cdn.example.com/f"}})
	assert.Empty(t, cdn.staticDirs)
}
