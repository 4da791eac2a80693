package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"sync"

	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// restClient 对 /api/v1 的 JSON 调用，统一解 {code,msg,data}
type restClient struct {
	base string
	hc   *http.Client
	log  *zap.Logger

	mu    sync.RWMutex
	token string
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newRESTClient(apiHost string, hc *http.Client, log *zap.Logger) *restClient {
	return &restClient{base: apiHost + apiPrefix, hc: hc, log: log}
}

func (r *restClient) setToken(t string) {
	r.mu.Lock()
	r.token = t
	r.mu.Unlock()
}

func (r *restClient) sessionToken() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token
}

func (r *restClient) get(ctx context.Context, path string, q url.Values, out any) error {
	return r.do(ctx, http.MethodGet, path, q, nil, out)
}

func (r *restClient) post(ctx context.Context, path string, body, out any) error {
	return r.do(ctx, http.MethodPost, path, nil, body, out)
}

func (r *restClient) put(ctx context.Context, path string, body, out any) error {
	return r.do(ctx, http.MethodPut, path, nil, body, out)
}

func (r *restClient) del(ctx context.Context, path string, q url.Values, out any) error {
	return r.do(ctx, http.MethodDelete, path, q, nil, out)
}

func (r *restClient) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return newError(CodeInvalidParameter, err)
		}
		rd = bytes.NewReader(b)
	}
	u := r.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return newError(CodeInvalidParameter, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.send(req, out)
}

func (r *restClient) send(req *http.Request, out any) error {
	if t := r.sessionToken(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
	resp, err := r.hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return newError(CodeRequestFailed, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			return newError(CodeUnauthorized, err)
		}
		return newError(CodeRequestFailed, errors.New(resp.Status))
	}
	if env.Code != 0 {
		r.log.Debug("request rejected",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("code", env.Code),
			zap.String("msg", env.Msg))
		return serverError(env.Code, env.Msg)
	}
	if resp.StatusCode != http.StatusOK {
		return newError(CodeRequestFailed, errors.New(resp.Status))
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return newError(CodeRequestFailed, err)
	}
	return nil
}

// upload 以 multipart 上传文件，progress 在每次写出后回调。
// 返回前等待写协程退出，返回后不会再回调 progress。
func (r *restClient) upload(ctx context.Context, name, mimeType string, file io.Reader, size int64, progress func(Progress)) (*wire.UploadedFile, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})

	go func() {
		defer close(done)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+escapeQuotes(name)+`"`)
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		h.Set("Content-Type", mimeType)
		part, err := mw.CreatePart(h)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		var sent int64
		buf := make([]byte, 32<<10)
		for {
			n, rerr := file.Read(buf)
			if n > 0 {
				if _, werr := part.Write(buf[:n]); werr != nil {
					pw.CloseWithError(werr)
					return
				}
				sent += int64(n)
				if progress != nil {
					progress(Progress{BytesSent: int64(n), TotalBytesSent: sent, TotalExpected: size})
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				pw.CloseWithError(rerr)
				return
			}
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/files", pr)
	if err != nil {
		pr.Close()
		<-done
		return nil, newError(CodeInvalidParameter, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out wire.UploadedFile
	err = r.send(req, &out)
	if err != nil {
		pr.CloseWithError(err)
	} else {
		pr.Close()
	}
	<-done
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func escapeQuotes(s string) string {
	var b bytes.Buffer
	for _, c := range s {
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// 路径片段

func groupPath(url string) string { return "/group_channels/" + pathEscape(url) }
func openPath(url string) string  { return "/open_channels/" + pathEscape(url) }

func channelPath(t ChannelType, url string) string {
	if t == ChannelTypeOpen {
		return openPath(url)
	}
	return groupPath(url)
}

func messagePath(t ChannelType, url string, msgID uint64) string {
	return channelPath(t, url) + "/messages/" + strconv.FormatUint(msgID, 10)
}

func pathEscape(s string) string { return url.PathEscape(s) }

// query 构造查询参数，跳过零值
type query url.Values

func (q query) str(k, v string) query {
	if v != "" {
		url.Values(q).Set(k, v)
	}
	return q
}

func (q query) list(k string, vs []string) query {
	for _, v := range vs {
		if v != "" {
			url.Values(q).Add(k, v)
		}
	}
	return q
}

func (q query) num(k string, n int64) query {
	if n != 0 {
		url.Values(q).Set(k, strconv.FormatInt(n, 10))
	}
	return q
}

func (q query) flag(k string, b bool) query {
	if b {
		url.Values(q).Set(k, "true")
	}
	return q
}

func (q query) values() url.Values { return url.Values(q) }
