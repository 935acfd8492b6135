package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/testutil"
)

// fakeEngine returns one bubble per call sized from the image.
type fakeEngine struct {
	mu     sync.Mutex
	calls  int
	err    error
	block  bool
	delay  time.Duration
	closed bool
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) OCR(ctx context.Context, img image.Image) ([]bubble.Bubble, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	b := img.Bounds()
	out, _ := bubble.New("ｸﾏ", bubble.BoundingBox{X: 0.1, Y: 0.2, Width: 0.3, Height: float64(b.Dy()) / 1000}, 90, 0.95)
	return []bubble.Bubble{out}, nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() Config {
	return Config{Host: "localhost", Port: 8080, CORSOrigin: "*", MaxUploadMB: 1, TimeoutSec: 5, CacheSize: 8}
}

func newTestServer(t *testing.T, eng *fakeEngine, mutate func(*Config)) *Server {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(eng, cfg)
	require.NoError(t, err)
	return s
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	return testutil.EncodePNG(t, testutil.CreateTestImage(w, h, color.White))
}

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "page.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ocr", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}
