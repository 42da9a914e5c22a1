package handlers

import (
	"embed"
	"encoding/base64"
	"html/template"
	"net/http"

	"github.com/Brownie44l1/cropdoc/internal/advisory"
	"github.com/Brownie44l1/cropdoc/internal/inference"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// PageData is everything the single page renders.
type PageData struct {
	ModelLoaded bool
	ModelError  string
	Preview     template.URL
	Result      *inference.Result
	UploadError string
	ChatMessage string
	ChatError   string
	Chat        *ChatResponse
	Library     []advisory.Entry
}

// Page serves the upload and chat page. GET renders it empty; POST runs the
// form named by the "action" query parameter ("chat", otherwise an image
// upload) and renders the outcome.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := PageData{
		ModelLoaded: h.model.Loaded(),
		ModelError:  h.model.ErrorText(),
		Library:     advisory.Library(),
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodPost:
		h.handlePageForm(w, r, &data)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.log.Error("Render page", "error", err)
	}
}

func (h *Handler) handlePageForm(w http.ResponseWriter, r *http.Request, data *PageData) {
	if r.URL.Query().Get("action") == "chat" {
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		data.ChatMessage = r.PostFormValue("message")
		if err := validate.Struct(ChatRequest{Message: data.ChatMessage}); err != nil {
			data.ChatError = chatTooLong
			return
		}
		reply := h.reply(data.ChatMessage)
		data.Chat = &reply
		return
	}

	upload, _, err := h.readUpload(w, r)
	if err != nil {
		data.UploadError = "Please choose a JPG or PNG image to upload."
		return
	}

	img, mime, err := h.pipeline.Decode(upload)
	if err != nil {
		data.UploadError = "Invalid image format. Supported: JPEG, PNG"
		return
	}
	data.Preview = template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(upload))

	result, err := h.pipeline.Predict(r.Context(), img)
	if err != nil {
		h.log.Error("Prediction error", "error", err)
		data.UploadError = "Prediction failed."
		return
	}
	data.Result = &result
}
