package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/shirou/gopsutil/process"

	"github.com/Brownie44l1/cropdoc/internal/advisory"
	"github.com/Brownie44l1/cropdoc/internal/inference"
	"github.com/Brownie44l1/cropdoc/internal/metrics"
	"github.com/Brownie44l1/cropdoc/internal/model"
)

const maxChatLength = 2000

var chatTooLong = fmt.Sprintf("Message must be at most %d characters", maxChatLength)

var validate = validator.New()

type Handler struct {
	pipeline  *inference.Pipeline
	chatbot   *advisory.Chatbot
	model     *model.Handle
	metrics   *metrics.Metrics
	log       *slog.Logger
	maxUpload int64
	history   HistoryReader
}

func NewHandler(
	pipeline *inference.Pipeline,
	chatbot *advisory.Chatbot,
	modelHandle *model.Handle,
	m *metrics.Metrics,
	log *slog.Logger,
	maxUpload int64,
	opts ...Option,
) *Handler {
	h := &Handler{
		pipeline:  pipeline,
		chatbot:   chatbot,
		model:     modelHandle,
		metrics:   m,
		log:       log,
		maxUpload: maxUpload,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type HealthResponse struct {
	Status      string          `json:"status"`
	ModelLoaded bool            `json:"model_loaded"`
	ModelError  string          `json:"model_error,omitempty"`
	Model       *model.Metadata `json:"model,omitempty"`
	RSSBytes    uint64          `json:"rss_bytes,omitempty"`
}

// TensorRequest carries an already preprocessed NHWC image.
type TensorRequest struct {
	Image []float32 `json:"image"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
	Class string `json:"class,omitempty"`
	Lang  string `json:"lang,omitempty"`
}

// Health reports liveness and whether the model is loaded. A missing
// model is a degraded state, not a failure.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "healthy",
		ModelLoaded: h.model.Loaded(),
		ModelError:  h.model.ErrorText(),
		Model:       h.model.Metadata(),
	}
	if !resp.ModelLoaded {
		resp.Status = "degraded"
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfo(); err == nil {
			resp.RSSBytes = mem.RSS
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Predict scores a raw tensor of 1x224x224x3 values.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		http.Error(w, "Failed to read request body", uploadErrorStatus(err))
		return
	}

	var req TensorRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if len(req.Image) != inference.TensorSize {
		http.Error(w, fmt.Sprintf("Expected %d values, got %d", inference.TensorSize, len(req.Image)),
			http.StatusBadRequest)
		return
	}

	result, err := h.pipeline.PredictTensor(r.Context(), req.Image)
	if err != nil {
		h.log.Error("Prediction error", "error", err)
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// PredictFromImage classifies a JPEG or PNG uploaded in the "image" field.
func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, filename, err := h.readUpload(w, r)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	h.log.Info("Received file", "filename", filename, "bytes", len(data))

	result, err := h.pipeline.PredictBytes(r.Context(), data)
	if err != nil {
		status := predictErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("Prediction error", "error", err)
			http.Error(w, "Prediction failed", status)
			return
		}
		http.Error(w, "Invalid image format. Supported: JPEG, PNG", status)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Chat answers a free text question with the matching advisory.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, chatTooLong, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.reply(req.Message))
}

// Library lists the known crop health states with their treatments.
func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, advisory.Library())
}

func (h *Handler) reply(message string) ChatResponse {
	resp := ChatResponse{
		Reply: h.chatbot.Reply(message),
		Lang:  advisory.DetectLanguage(message),
	}
	if l, ok := h.chatbot.Match(message); ok {
		resp.Class = l.String()
	}
	h.metrics.ObserveChat(resp.Class)
	h.log.Debug("Chat reply", "class", resp.Class, "lang", resp.Lang)
	return resp
}

var errNoImage = errors.New("no image field")

// readUpload returns the bytes of the "image" multipart field.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, "", err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", errNoImage
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch status := uploadErrorStatus(err); {
	case errors.Is(err, errNoImage):
		http.Error(w, "No image file provided. Use 'image' as the form field name", status)
	case status == http.StatusRequestEntityTooLarge:
		http.Error(w, "Image too large", status)
	default:
		http.Error(w, "Failed to parse form", status)
	}
}

func uploadErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func predictErrorStatus(err error) int {
	switch {
	case errors.Is(err, inference.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, inference.ErrInvalidImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
