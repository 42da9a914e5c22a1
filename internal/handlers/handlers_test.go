package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Brownie44l1/cropdoc/internal/advisory"
	"github.com/Brownie44l1/cropdoc/internal/inference"
	"github.com/Brownie44l1/cropdoc/internal/metrics"
	"github.com/Brownie44l1/cropdoc/internal/mocks"
	"github.com/Brownie44l1/cropdoc/internal/model"
)

func newTestServer(t *testing.T, scorer model.Scorer) *httptest.Server {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)

	handle := &model.Handle{Scorer: scorer}
	if scorer == nil {
		handle.Err = fmt.Errorf("%w: /models/rice.onnx", model.ErrModelMissing)
	}

	chatbot, err := advisory.NewChatbot()
	require.NoError(t, err)

	m := metrics.New()
	h := NewHandler(inference.NewPipeline(scorer, log, inference.WithObserver(m)), chatbot, handle, m, log, 1<<20)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 30, G: 150, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHealth(t *testing.T) {
	t.Run("degraded without model", func(t *testing.T) {
		srv := newTestServer(t, nil)
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		resp.Body.Close()
		require.Equal(t, "degraded", got.Status)
		require.False(t, got.ModelLoaded)
		require.Contains(t, got.ModelError, "model file not found")
	})

	t.Run("healthy with model", func(t *testing.T) {
		srv := newTestServer(t, mocks.NewMockScorer(gomock.NewController(t)))
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)

		var got HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		resp.Body.Close()
		require.Equal(t, "healthy", got.Status)
		require.True(t, got.ModelLoaded)
		require.Empty(t, got.ModelError)
	})
}

func TestPredictFromImage(t *testing.T) {
	ctrl := gomock.NewController(t)
	scorer := mocks.NewMockScorer(ctrl)
	srv := newTestServer(t, scorer)

	scorer.EXPECT().
		Score(gomock.Any(), gomock.Len(inference.TensorSize)).
		Return([]float32{0.05, 0.8, 0.1, 0.05}, nil)

	body, contentType := multipartBody(t, "image", "leaf.png", pngBytes(t))
	resp, err := http.Post(srv.URL+"/predict/image", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var result inference.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	require.Equal(t, "Leaf Blast", result.Class)
	require.Equal(t, advisory.Advice(advisory.LeafBlast), result.Solution)
	require.True(t, result.ModelLoaded)
}

func TestPredictFromImage_NoModel(t *testing.T) {
	srv := newTestServer(t, nil)

	body, contentType := multipartBody(t, "image", "leaf.png", pngBytes(t))
	resp, err := http.Post(srv.URL+"/predict/image", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result inference.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	require.Equal(t, "Model is not loaded", result.Class)
	require.Equal(t, "Model is not loaded", result.Solution)
}

func TestPredictFromImage_BadRequests(t *testing.T) {
	srv := newTestServer(t, mocks.NewMockScorer(gomock.NewController(t)))

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/predict/image")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("missing field", func(t *testing.T) {
		body, contentType := multipartBody(t, "photo", "leaf.png", pngBytes(t))
		resp, err := http.Post(srv.URL+"/predict/image", contentType, body)
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, readBody(t, resp), "'image'")
	})

	t.Run("not multipart", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/predict/image", "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unsupported format", func(t *testing.T) {
		body, contentType := multipartBody(t, "image", "leaf.gif", []byte("GIF89a\x01\x00\x01\x00"))
		resp, err := http.Post(srv.URL+"/predict/image", contentType, body)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
		require.Contains(t, readBody(t, resp), "Supported: JPEG, PNG")
	})
}

func TestPredictTensor(t *testing.T) {
	ctrl := gomock.NewController(t)
	scorer := mocks.NewMockScorer(ctrl)
	srv := newTestServer(t, scorer)

	t.Run("wrong size", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(`{"image":[0.1,0.2]}`))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, readBody(t, resp), fmt.Sprintf("Expected %d values, got 2", inference.TensorSize))
	})

	t.Run("invalid json", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(`{`))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("scored", func(t *testing.T) {
		scorer.EXPECT().Score(gomock.Any(), gomock.Any()).Return([]float32{0, 0, 0, 1}, nil)

		payload, err := json.Marshal(TensorRequest{Image: make([]float32, inference.TensorSize)})
		require.NoError(t, err)
		resp, err := http.Post(srv.URL+"/predict", "application/json", bytes.NewReader(payload))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result inference.Result
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		resp.Body.Close()
		require.Equal(t, "Sheath Blight", result.Class)
	})

	t.Run("scorer failure", func(t *testing.T) {
		scorer.EXPECT().Score(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("session closed"))

		payload, err := json.Marshal(TensorRequest{Image: make([]float32, inference.TensorSize)})
		require.NoError(t, err)
		resp, err := http.Post(srv.URL+"/predict", "application/json", bytes.NewReader(payload))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestChat(t *testing.T) {
	srv := newTestServer(t, nil)

	post := func(body string) *http.Response {
		resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	resp := post(`{"message":"My rice has Leaf Blast symptoms"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	require.Equal(t, advisory.Advice(advisory.LeafBlast), got.Reply)
	require.Equal(t, "Leaf Blast", got.Class)

	resp = post(`{"message":"random unrelated question"}`)
	got = ChatResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	require.Equal(t, "We are connecting as soon as.", got.Reply)
	require.Empty(t, got.Class)

	resp = post(`{"message":"` + strings.Repeat("a", 2001) + `"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(`not json`)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLibrary(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/library")
	require.NoError(t, err)

	var entries []advisory.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	resp.Body.Close()
	require.Len(t, entries, advisory.Count)
	require.Equal(t, "Leaf Blast", entries[0].Name)
}

func TestPage(t *testing.T) {
	t.Run("get shows banner without model", func(t *testing.T) {
		srv := newTestServer(t, nil)
		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		html := readBody(t, resp)
		require.Contains(t, html, "Upload Crop Image")
		require.Contains(t, html, "Model is not loaded")
		require.Contains(t, html, "Sheath Blight causes lesions")
	})

	t.Run("chat form", func(t *testing.T) {
		srv := newTestServer(t, nil)
		resp, err := http.PostForm(srv.URL+"/?action=chat", url.Values{"message": {"everything looks Healthy"}})
		require.NoError(t, err)
		html := readBody(t, resp)
		require.Contains(t, html, "<strong>Bot:</strong> No treatment needed. Keep monitoring the crop regularly.")
	})

	t.Run("chat form rejects long message", func(t *testing.T) {
		srv := newTestServer(t, nil)
		resp, err := http.PostForm(srv.URL+"/?action=chat", url.Values{"message": {strings.Repeat("a", 2001)}})
		require.NoError(t, err)
		html := readBody(t, resp)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, html, "Message must be at most 2000 characters")
		require.NotContains(t, html, "<strong>Bot:</strong>")
	})

	t.Run("predict form", func(t *testing.T) {
		scorer := mocks.NewMockScorer(gomock.NewController(t))
		srv := newTestServer(t, scorer)
		scorer.EXPECT().Score(gomock.Any(), gomock.Any()).Return([]float32{0.1, 0.1, 0.7, 0.1}, nil)

		body, contentType := multipartBody(t, "image", "leaf.png", pngBytes(t))
		resp, err := http.Post(srv.URL+"/?action=predict", contentType, body)
		require.NoError(t, err)
		html := readBody(t, resp)
		require.Contains(t, html, "Prediction: Brown Spot")
		require.Contains(t, html, "data:image/png;base64,")
		require.NotContains(t, html, "Model is not loaded")
	})

	t.Run("predict form without file", func(t *testing.T) {
		srv := newTestServer(t, nil)
		resp, err := http.PostForm(srv.URL+"/?action=predict", url.Values{})
		require.NoError(t, err)
		require.Contains(t, readBody(t, resp), "Please choose a JPG or PNG image to upload.")
	})

	t.Run("unknown path", func(t *testing.T) {
		srv := newTestServer(t, nil)
		resp, err := http.Get(srv.URL + "/nope")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/predict/image", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "POST, GET, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	require.Contains(t, readBody(t, resp), `http_requests_total{method="GET",path="/health",status="200"} 1`)
}
