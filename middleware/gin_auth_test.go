package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cydxin/birdchat/response"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth map[string]uint64

func (f fakeAuth) Authenticate(_ context.Context, token string) (uint64, error) {
	if uid, ok := f[token]; ok {
		return uid, nil
	}
	return 0, errors.New("session invalid")
}

func newRouter(auth Authenticator, opt *AuthOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinAuthMiddleware(auth, opt))
	r.GET("/me", func(c *gin.Context) {
		uid, _ := c.Get(ContextUserIDKey)
		tok, _ := c.Get(ContextTokenKey)
		c.JSON(http.StatusOK, gin.H{"uid": uid, "token": tok})
	})
	return r
}

func TestGinAuthMiddleware(t *testing.T) {
	auth := fakeAuth{"good": 42}

	cases := []struct {
		name   string
		opt    *AuthOptions
		header map[string]string
		query  string
		status int
		uid    float64
	}{
		{name: "bearer", header: map[string]string{"Authorization": "Bearer good"}, status: http.StatusOK, uid: 42},
		{name: "bearer case-insensitive", header: map[string]string{"Authorization": "bearer  good "}, status: http.StatusOK, uid: 42},
		{name: "query fallback", query: "?token=good", status: http.StatusOK, uid: 42},
		{name: "custom header", opt: &AuthOptions{HeaderKey: "X-Token", QueryKey: "t"}, header: map[string]string{"X-Token": "Bearer good"}, status: http.StatusOK, uid: 42},
		{name: "custom query", opt: &AuthOptions{QueryKey: "t"}, query: "?t=good", status: http.StatusOK, uid: 42},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "not bearer", header: map[string]string{"Authorization": "Basic good"}, status: http.StatusUnauthorized},
		{name: "unknown token", header: map[string]string{"Authorization": "Bearer bad"}, status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tc.query, nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			newRouter(auth, tc.opt).ServeHTTP(w, req)

			require.Equal(t, tc.status, w.Code)
			if tc.status != http.StatusOK {
				var resp response.Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, response.CodeTokenInvalid, resp.Code)
				return
			}
			var body struct {
				UID   float64 `json:"uid"`
				Token string  `json:"token"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.uid, body.UID)
			assert.Equal(t, "good", body.Token)
		})
	}
}

func TestGinAuthMiddleware_NilAuth(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(nil, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
