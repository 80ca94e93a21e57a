package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ametelin/docqa/internal/core/ports"
	"github.com/ametelin/docqa/internal/observability/metrics"
)

const serviceAPI = "api"

const maxUploadBytes = 64 << 20

// TrafficLimits bound the request intake of the API server. Zero values
// disable the corresponding control.
type TrafficLimits struct {
	RPS          float64
	Burst        int
	MaxInFlight  int
	QueueTimeout time.Duration
}

type Router struct {
	answers ports.AnswerService
	builder ports.IndexBuilder
	jobs    ports.JobReader
	index   ports.IndexStatus
	storage ports.ObjectStorage
	metrics *metrics.HTTPServerMetrics
	limits  TrafficLimits
	logger  *slog.Logger
}

func NewRouter(
	answers ports.AnswerService,
	builder ports.IndexBuilder,
	jobs ports.JobReader,
	index ports.IndexStatus,
	storage ports.ObjectStorage,
	serverMetrics *metrics.HTTPServerMetrics,
	limits TrafficLimits,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		answers: answers,
		builder: builder,
		jobs:    jobs,
		index:   index,
		storage: storage,
		metrics: serverMetrics,
		limits:  limits,
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/build", rt.buildIndex)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/query/stream", rt.queryStream)
	mux.HandleFunc("/v1/jobs/", rt.getJob)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.limits.MaxInFlight, rt.limits.QueueTimeout)
	handler = rateLimitMiddleware(handler, rt.limits.RPS, rt.limits.Burst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceAPI, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":       "ok",
		"index_ready":  rt.index.Ready(r.Context()),
		"documents":    rt.index.DocumentCount(),
		"pending_jobs": rt.jobs.CountPending(),
	}
	writeJSON(w, http.StatusOK, payload)
}

// buildIndex stages the uploaded documents into object storage and runs one
// synchronous build cycle over them.
func (rt *Router) buildIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		fileHeaders = r.MultipartForm.File["file"]
	}
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "multipart field 'files' is required")
		return
	}

	chunkSize, err := formInt(r, "chunk_size")
	if err != nil {
		writeError(w, http.StatusBadRequest, "chunk_size must be an integer")
		return
	}
	chunkOverlap, err := formInt(r, "chunk_overlap")
	if err != nil {
		writeError(w, http.StatusBadRequest, "chunk_overlap must be an integer")
		return
	}

	uploadID := uuid.NewString()
	inputs := make([]ports.BuildInput, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable multipart file")
			return
		}

		filename := filepath.Base(header.Filename)
		key := fmt.Sprintf("uploads/%s/%s", uploadID, filename)
		saveErr := rt.storage.Save(r.Context(), key, file)
		file.Close()
		if saveErr != nil {
			rt.logger.Error("document staging failed", "filename", filename, "error", saveErr)
			writeError(w, http.StatusInternalServerError, "failed to stage uploaded document")
			return
		}
		inputs = append(inputs, ports.BuildInput{Filename: filename, Key: key})
	}

	result, err := rt.builder.Build(r.Context(), ports.BuildRequest{
		Name:         r.FormValue("name"),
		Files:        inputs,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	})
	if rt.metrics != nil {
		chunks := 0
		if result != nil {
			chunks = result.Chunks
		}
		rt.metrics.RecordBuild(serviceAPI, chunks, err)
	}
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type queryRequest struct {
	Question string `json:"question"`
	Strategy string `json:"strategy"`
	Chain    string `json:"chain"`
	TopK     int    `json:"top_k"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	answer, err := rt.answers.Answer(r.Context(), req)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAnswer(serviceAPI, "/v1/query",
			string(answer.Strategy), string(answer.Chain), string(answer.Fallback),
			len(answer.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, ok := rt.jobs.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown job: %s", id))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func decodeQueryRequest(w http.ResponseWriter, r *http.Request) (ports.AnswerRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return ports.AnswerRequest{}, false
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return ports.AnswerRequest{}, false
	}
	return ports.AnswerRequest{
		Question: req.Question,
		Strategy: req.Strategy,
		Chain:    req.Chain,
		TopK:     req.TopK,
	}, true
}

func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
