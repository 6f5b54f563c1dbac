// Package httpapi exposes the resume matcher over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"resumatch/internal/domain"
	"resumatch/internal/service"
	"resumatch/internal/store"
	"resumatch/internal/tokenize"
)

const maxUploadBytes = 32 << 20

// MatchPort is the subset of the match service the API needs.
type MatchPort interface {
	UploadResume(filename string, r io.Reader) (service.UploadResult, error)
	ListResumes() []domain.DocumentRef
	DeleteResume(id string) error
	Rebuild() (store.RebuildReport, error)
	IndexPath() string
	SetJob(title, description string) (service.JobReceipt, error)
	TopMatches(n int) []domain.Match
	DefaultTopK() int
}

// Config configures the server.
type Config struct {
	Addr        string
	CORSOrigins []string
}

// Server serves the JSON API.
type Server struct {
	svc     MatchPort
	cfg     Config
	log     *zap.Logger
	handler http.Handler
}

func New(svc MatchPort, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	s := &Server{svc: svc, cfg: cfg, log: log.Named("http")}
	s.handler = s.withLogging(s.withCORS(s.routes()))
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /resumes/upload", s.handleUpload)
	mux.HandleFunc("GET /resumes/{$}", s.handleList)
	mux.HandleFunc("GET /match/resumes", s.handleList)
	mux.HandleFunc("DELETE /resumes/{id}", s.handleDelete)
	mux.HandleFunc("POST /resumes/rebuild", s.handleRebuild)
	mux.HandleFunc("GET /resumes/index", s.handleIndex)
	mux.HandleFunc("POST /jobs/upload", s.handleJob)
	mux.HandleFunc("GET /match/top", s.handleTop)
	return mux
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "multipart field \"file\" is required"})
		return
	}
	defer file.Close()
	res, err := s.svc.UploadResume(header.Filename, file)
	if err != nil {
		s.fail(w, "upload failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	resumes := s.svc.ListResumes()
	if resumes == nil {
		resumes = []domain.DocumentRef{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"resumes": resumes})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.svc.DeleteResume(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Resume not found"})
	case err != nil:
		s.fail(w, "delete failed", err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
	}
}

func (s *Server) handleRebuild(w http.ResponseWriter, _ *http.Request) {
	report, err := s.svc.Rebuild()
	if err != nil {
		s.fail(w, "rebuild failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "rebuild_done", "added": report.Added})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	path := s.svc.IndexPath()
	if _, err := os.Stat(path); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "index not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="index.json"`)
	http.ServeFile(w, r, path)
}

type jobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid JSON body"})
		return
	}
	receipt, err := s.svc.SetJob(req.Title, req.Description)
	if err != nil {
		s.fail(w, "set job failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "job_received",
		"snippet": receipt.Snippet,
		"summary": receipt.Summary,
	})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n := s.svc.DefaultTopK()
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "n must be an integer"})
			return
		}
		n = v
	}
	matches := s.svc.TopMatches(n)
	if matches == nil {
		matches = []domain.Match{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches, "count": len(matches)})
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": tokenize.Prefix(err.Error(), 200)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
