package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/engine"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
	"github.com/MeKo-Tech/bubbleocr/internal/version"
)

// errBadImage marks payloads that could not be decoded as an image.
var errBadImage = errors.New("invalid image")

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.corsMiddleware("status", s.statusHandler))
	mux.HandleFunc("/health", s.corsMiddleware("health", s.healthHandler))
	mux.HandleFunc("/engines", s.corsMiddleware("engines", s.enginesHandler))
	mux.HandleFunc("/ocr", s.corsMiddleware("ocr", s.rateLimitMiddleware(s.ocrHandler)))
	mux.HandleFunc("/cache/purge", s.corsMiddleware("cache_purge", s.purgeCacheHandler))
	mux.HandleFunc("/ws/ocr", s.corsMiddleware("ws_ocr", s.ocrWebSocketHandler))
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg}))
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeErrorResponse(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Status:            "running",
		Engine:            s.engine.Name(),
		RequestsProcessed: s.processed.Load(),
		ItemsInCache:      s.cache.len(),
		UptimeSec:         int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) enginesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, EnginesResponse{Engines: engine.Names(), Active: s.engine.Name()})
}

func (s *Server) purgeCacheHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := s.cache.purge()
	s.logger.Info("result cache purged", "entries", n)
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "success", "purged": n})
}

// ocrHandler accepts an image as multipart field "image" or as the raw
// request body and answers with the bubble array.
func (s *Server) ocrHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := s.readImagePayload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.http.uploadSize.Observe(float64(len(data)))

	bubbles, err := s.recognize(r.Context(), data)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, bubbles)
}

func (s *Server) readImagePayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		data []byte
		err  error
	)
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
			return nil, fmt.Errorf("failed to parse form: %w", err)
		}
		file, _, ferr := r.FormFile("image")
		if ferr != nil {
			return nil, errors.New("no image file provided in field \"image\"")
		}
		defer func() { _ = file.Close() }()
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("no image data provided")
	}
	return data, nil
}

// recognize runs the engine on an encoded image, consulting the result
// cache first. A successful call counts as a processed request.
func (s *Server) recognize(ctx context.Context, data []byte) ([]bubble.Bubble, error) {
	name := s.engine.Name()
	key := cacheKey(name, data)
	if bubbles, ok := s.cache.get(key); ok {
		s.http.cacheLookups.WithLabelValues("hit").Inc()
		return bubbles, nil
	}
	if s.cache != nil {
		s.http.cacheLookups.WithLabelValues("miss").Inc()
	}

	img, _, err := utils.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadImage, err)
	}

	// The timeout covers the engine call only, not the wait for ocrMu.
	// Engines that ignore ctx (meikimanga) run to completion regardless.
	s.ocrMu.Lock()
	ocrCtx, cancel := context.WithTimeout(ctx, s.timeout)
	start := time.Now()
	bubbles, err := s.engine.OCR(ocrCtx, img)
	duration := time.Since(start)
	cancel()
	s.ocrMu.Unlock()

	s.metrics.ObserveOCR(name, duration, err)
	if err != nil {
		s.logger.Error("OCR failed", "engine", name, "error", err)
		return nil, fmt.Errorf("OCR process failed: %w", err)
	}
	if bubbles == nil {
		bubbles = []bubble.Bubble{}
	}

	s.processed.Add(1)
	s.cache.add(key, bubbles)
	s.logger.Info("OCR completed",
		"engine", name,
		"bubbles", len(bubbles),
		"duration_ms", duration.Milliseconds())
	return bubbles, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errBadImage):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
