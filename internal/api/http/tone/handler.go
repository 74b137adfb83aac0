package tone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/light-orchestra/internal/api/payload"
	domain "github.com/oshokin/light-orchestra/internal/domain/tone"
	"github.com/oshokin/light-orchestra/internal/ingest"
	"github.com/oshokin/light-orchestra/internal/logger"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 64 << 10

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Submit(ctx context.Context, cmd domain.Command) uint64
	Health(ctx context.Context) domain.Health
	Sensor(ctx context.Context) (domain.SensorSample, error)
	Status(ctx context.Context) domain.Snapshot
}

// Handler serves the HTTP API.
type Handler struct {
	// service provides the business logic.
	service Service
	// decoder validates inbound payloads.
	decoder *ingest.Decoder
	// mux routes requests.
	mux *http.ServeMux
}

// NewHandler builds the route table.
func NewHandler(service Service, decoder *ingest.Decoder) *Handler {
	h := &Handler{
		service: service,
		decoder: decoder,
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /{$}", h.index)
	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("GET /sensor", h.sensor)
	h.mux.HandleFunc("GET /status", h.status)
	h.mux.HandleFunc("POST /play_note", h.playNote)
	h.mux.HandleFunc("POST /tone", h.tone)
	h.mux.HandleFunc("POST /melody", h.melody)
	h.mux.HandleFunc("POST /stop", h.stop)

	return h
}

// ServeHTTP implements http.Handler and logs every request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	h.mux.ServeHTTP(recorder, r)

	logger.DebugKV(
		r.Context(),
		"HTTP request served",
		"method", r.Method,
		"path", r.URL.Path,
		"status", recorder.status,
		"elapsed", time.Since(started).String(),
	)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	reading := "unavailable"

	if sample, err := h.service.Sensor(r.Context()); err == nil {
		reading = fmt.Sprintf("%d (normalized %.3f)", sample.Raw, sample.Normalized)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, indexPage, reading)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, payload.Health(h.service.Health(r.Context())))
}

func (h *Handler) sensor(w http.ResponseWriter, r *http.Request) {
	sample, err := h.service.Sensor(r.Context())
	if err != nil {
		writeJSON(r.Context(), w, http.StatusServiceUnavailable, payload.Error("sensor is unavailable"))
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, payload.Sensor(sample))
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, payload.Status(h.service.Status(r.Context())))
}

func (h *Handler) playNote(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	note, err := h.decoder.PlayNote(body)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, payload.NoteAccepted(h.service.Submit(r.Context(), note)))
}

func (h *Handler) tone(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	note, err := h.decoder.Tone(body)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusAccepted, payload.ToneAccepted(h.service.Submit(r.Context(), note), note))
}

func (h *Handler) melody(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	seq, err := h.decoder.Melody(body)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusAccepted, payload.MelodyAccepted(h.service.Submit(r.Context(), seq), seq))
}

func (h *Handler) stop(w http.ResponseWriter, r *http.Request) {
	h.service.Submit(r.Context(), domain.Stop{})

	writeJSON(r.Context(), w, http.StatusOK, payload.Stopped())
}

// readBody decodes a JSON object body. On failure the error response is
// already written and ok is false.
func readBody(w http.ResponseWriter, r *http.Request) (*structpb.Struct, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(r.Context(), w, http.StatusRequestEntityTooLarge, payload.Error("body is too large"))
			return nil, false
		}

		writeJSON(r.Context(), w, http.StatusBadRequest, payload.Error("unable to read body"))

		return nil, false
	}

	body := new(structpb.Struct)

	if err = protojson.Unmarshal(data, body); err != nil {
		writeJSON(r.Context(), w, http.StatusBadRequest, payload.Error("body must be a JSON object"))
		return nil, false
	}

	return body, true
}

// writeError maps validation failures to 400 and everything else to 500.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, ingest.ErrInvalidRequest) {
		writeJSON(ctx, w, http.StatusBadRequest, payload.Error(err.Error()))
		return
	}

	logger.ErrorKV(ctx, "Request failed", "error", err)
	writeJSON(ctx, w, http.StatusInternalServerError, payload.Error("unable to process request"))
}

// writeJSON writes exactly one response.
func writeJSON(ctx context.Context, w http.ResponseWriter, code int, body *structpb.Struct) {
	data, err := protojson.Marshal(body)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode response", "error", err)

		code = http.StatusInternalServerError
		data = []byte(`{"error":"unable to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if _, err = w.Write(data); err != nil {
		logger.DebugKV(ctx, "Failed to write response", "error", err)
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter

	// status is the code passed to WriteHeader.
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Light Orchestra</title></head>
<body>
<h1>Light Orchestra</h1>
<p>Current light sensor reading: %s</p>
<ul>
<li>GET <a href="/health">/health</a></li>
<li>GET <a href="/sensor">/sensor</a></li>
<li>GET <a href="/status">/status</a></li>
<li>POST /play_note {"frequency": 440, "duration": 1}</li>
<li>POST /tone {"freq": 440, "ms": 500, "duty": 0.5}</li>
<li>POST /melody {"notes": [{"freq": 262, "ms": 200}], "gap_ms": 20}</li>
<li>POST /stop</li>
</ul>
</body>
</html>
`
