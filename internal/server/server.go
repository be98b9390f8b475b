package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/facetract/detections"
	"github.com/Tutortoise/facetract/internal/config"
	"github.com/Tutortoise/facetract/internal/log"
	"github.com/Tutortoise/facetract/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FaceDetector is satisfied by detections.Detector.
type FaceDetector interface {
	Detect(img image.Image) ([]models.Detection, error)
}

type Server struct {
	router   *mux.Router
	detector FaceDetector
	limiter  *Limiter
	log      *logrus.Logger
	cfg      *config.Config
}

func New(cfg *config.Config, detector FaceDetector, logger *logrus.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		detector: detector,
		limiter:  NewLimiter(cfg.MaxConcurrent, cfg.AcquireTimeout),
		log:      logger,
		cfg:      cfg,
	}

	s.router.Use(requestIDMiddleware, loggingMiddleware(logger))
	s.router.HandleFunc("/detect", s.handleDetect).Methods(http.MethodPost)
	s.router.HandleFunc("/validate-face", s.handleValidateFace).Methods(http.MethodPost)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:      s.router,
		Addr:         s.cfg.Addr,
		WriteTimeout: s.cfg.WriteTimeout,
		ReadTimeout:  s.cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Starting server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	s.limiter.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type BoxResponse struct {
	X1     float32 `json:"x1"`
	Y1     float32 `json:"y1"`
	X2     float32 `json:"x2"`
	Y2     float32 `json:"y2"`
	Width  uint32  `json:"width"`
	Height uint32  `json:"height"`
}

type FaceResponse struct {
	Box         BoxResponse `json:"box"`
	Probability float32     `json:"probability"`
}

type DetectResponse struct {
	RequestID string         `json:"request_id"`
	FaceCount int            `json:"face_count"`
	Faces     []FaceResponse `json:"faces"`
}

type ValidationResponse struct {
	IsValid   bool   `json:"is_valid"`
	FaceCount int    `json:"face_count"`
	Message   string `json:"message"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	dets, ok := s.detect(w, r)
	if !ok {
		return
	}

	faces := make([]FaceResponse, 0, len(dets))
	for _, d := range dets {
		box := d.Box()
		faces = append(faces, FaceResponse{
			Box: BoxResponse{
				X1:     box.X1,
				Y1:     box.Y1,
				X2:     box.X2,
				Y2:     box.Y2,
				Width:  box.Width(),
				Height: box.Height(),
			},
			Probability: d.Probability(),
		})
	}

	s.sendJSON(w, http.StatusOK, DetectResponse{
		RequestID: RequestID(r.Context()),
		FaceCount: len(faces),
		Faces:     faces,
	})
}

func (s *Server) handleValidateFace(w http.ResponseWriter, r *http.Request) {
	dets, ok := s.detect(w, r)
	if !ok {
		return
	}

	faceCount := len(dets)
	s.sendJSON(w, http.StatusOK, ValidationResponse{
		IsValid:   faceCount == 1,
		FaceCount: faceCount,
		Message:   faceValidationMessage(faceCount),
	})
}

// detect decodes the request image and runs the detector under a limiter
// slot. On failure it has already written the error response.
func (s *Server) detect(w http.ResponseWriter, r *http.Request) ([]models.Detection, bool) {
	startTotal := time.Now()
	ctx := r.Context()
	timings := &models.ProcessingTimings{RequestID: RequestID(ctx)}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	imgBytes, err := readImageBytes(r, s.cfg.MaxBodyBytes)
	if err != nil {
		s.sendError(w, r, "invalid_request", err, http.StatusBadRequest)
		return nil, false
	}

	decodeStart := time.Now()
	img, err := imaging.Decode(bytes.NewReader(imgBytes), imaging.AutoOrientation(true))
	timings.ImageDecode = time.Since(decodeStart)
	if err != nil {
		s.sendError(w, r, "invalid_image", fmt.Errorf("decode image: %w", err), http.StatusBadRequest)
		return nil, false
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		s.sendError(w, r, "busy", err, http.StatusServiceUnavailable)
		return nil, false
	}
	defer s.limiter.Release()

	inferStart := time.Now()
	dets, err := s.detector.Detect(img)
	timings.Inference = time.Since(inferStart)
	if err != nil {
		var engineErr *detections.EngineError
		code := "processing_error"
		if errors.As(err, &engineErr) {
			code = "engine_error"
		}
		s.sendError(w, r, code, err, http.StatusInternalServerError)
		return nil, false
	}

	timings.Total = time.Since(startTotal)
	s.logTimings(timings, len(dets))
	return dets, true
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, http.StatusOK, s.limiter.Metrics())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) logTimings(t *models.ProcessingTimings, faces int) {
	if !s.cfg.Debug {
		return
	}
	s.log.WithFields(log.Fields{
		"request_id":   t.RequestID,
		"faces":        faces,
		"decode_ms":    t.ImageDecode.Milliseconds(),
		"inference_ms": t.Inference.Milliseconds(),
		"total_ms":     t.Total.Milliseconds(),
	}).Debug("Processing times")
}

// readImageBytes accepts a base64 JSON body, a multipart "file" field or the
// raw image as the body.
func readImageBytes(r *http.Request, maxBytes int64) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var req struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		if req.Image == "" {
			return nil, errors.New("image field is empty")
		}
		return base64.StdEncoding.DecodeString(req.Image)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("read file field: %w", err)
		}
		defer file.Close()
		return io.ReadAll(file)
	default:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if len(data) == 0 {
			return nil, errors.New("empty body")
		}
		return data, nil
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("Failed to encode response")
	}
}

func (s *Server) sendError(w http.ResponseWriter, r *http.Request, code string, err error, status int) {
	resp := ErrorResponse{Code: code, Message: err.Error()}
	fields := log.Fields{"request_id": RequestID(r.Context()), "code": code, "error": err.Error()}

	switch {
	case status == http.StatusServiceUnavailable:
		s.log.WithFields(fields).Warn("No detection slot available")
	case status >= http.StatusInternalServerError:
		resp.Message = "Failed to process image"
		resp.Details = err.Error()
		resp.TraceID = log.ErrorWithTraceID(s.log, fields, "Detection failed")
	default:
		s.log.WithFields(fields).Debug("Rejected request")
	}

	s.sendJSON(w, status, resp)
}
