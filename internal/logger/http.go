// 包 logger：出站 HTTP 请求日志，记录底图服务调用的方法、主机、路径、状态、字节数与耗时
package logger

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// countingBody：包装响应体以统计读取字节数，关闭时输出访问日志
type countingBody struct {
	io.ReadCloser
	n      int64
	onDone func(n int64)
	done   bool
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)
	return n, err
}

func (b *countingBody) Close() error {
	err := b.ReadCloser.Close()
	if !b.done {
		b.done = true
		b.onDone(b.n)
	}
	return err
}

type transport struct {
	l    *slog.Logger
	next http.RoundTripper
}

// Transport：生成带访问日志的 RoundTripper
// 约束：不读取请求体；查询串可能携带密钥，只记录路径
func Transport(l *slog.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if l == nil {
		l = L()
	}
	return &transport{l: l, next: next}
}

func (t *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(r)
	if err != nil {
		t.l.Error("http_client_error",
			"method", r.Method,
			"host", r.URL.Host,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
			"err", err,
		)
		return nil, err
	}
	status := resp.StatusCode
	resp.Body = &countingBody{ReadCloser: resp.Body, onDone: func(n int64) {
		t.l.Debug("http_client_access",
			"method", r.Method,
			"host", r.URL.Host,
			"path", r.URL.Path,
			"status", status,
			"bytes", n,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}}
	return resp, nil
}
