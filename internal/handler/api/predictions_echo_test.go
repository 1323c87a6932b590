package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	models "FinPredict/internal/domain/models"
	"FinPredict/internal/registry"
	"FinPredict/internal/repository"
	"FinPredict/internal/usecase"
	"FinPredict/pkg/cache"
	xlogger "FinPredict/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubQueue struct {
	mu       sync.Mutex
	messages []usecase.TrainSymbolPayload
}

func (q *stubQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := payload.(usecase.TrainSymbolPayload)
	if !ok {
		return errors.New("unexpected payload type")
	}
	_ = msgType
	q.messages = append(q.messages, p)
	return nil
}

func testHandler(t *testing.T) (*PredictionsEchoHandler, *stubQueue, *registry.FS) {
	t.Helper()
	lgr, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	reg, err := registry.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	store := repository.NewMemoryBarStore()
	predictor := usecase.NewPredictor(usecase.DefaultPredictorConfig(), store, reg, cache.NewMemoryCache(), nil, nil)
	q := &stubQueue{}
	trigger := usecase.NewTrainingTrigger(q, store, reg, nil)
	return NewPredictionsEchoHandler(lgr, predictor, trigger, reg), q, reg
}

func do(t *testing.T, h *PredictionsEchoHandler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bodyStatus(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp.Status
}

func TestPredictionUnknownSymbolMapsTo404(t *testing.T) {
	h, _, _ := testHandler(t)
	rec := do(t, h, http.MethodGet, "/api/predictions/NOPE/1", "")
	if got := bodyStatus(t, rec); got != http.StatusNotFound {
		t.Fatalf("want 404 in body, got %d: %s", got, rec.Body.String())
	}
}

func TestPredictionInvalidHorizonRejected(t *testing.T) {
	h, _, _ := testHandler(t)
	rec := do(t, h, http.MethodGet, "/api/predictions/AAPL/3", "")
	if got := bodyStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("want 400 in body, got %d: %s", got, rec.Body.String())
	}
}

func TestTrainQueuesSymbol(t *testing.T) {
	h, q, _ := testHandler(t)
	rec := do(t, h, http.MethodPost, "/api/training", `{"symbol":"aapl"}`)
	if got := bodyStatus(t, rec); got != http.StatusCreated {
		t.Fatalf("want 201 in body, got %d: %s", got, rec.Body.String())
	}
	if len(q.messages) != 1 || q.messages[0].Symbol != "AAPL" {
		t.Fatalf("unexpected queued messages: %+v", q.messages)
	}
}

func TestTrainRequiresSymbolOrAll(t *testing.T) {
	h, q, _ := testHandler(t)
	rec := do(t, h, http.MethodPost, "/api/training", `{}`)
	if got := bodyStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("want 400 in body, got %d: %s", got, rec.Body.String())
	}
	if len(q.messages) != 0 {
		t.Fatalf("nothing should be queued: %+v", q.messages)
	}
}

func TestTrainRateLimitedAfterBurst(t *testing.T) {
	h, _, _ := testHandler(t)

	limited := false
	for i := 0; i < 6; i++ {
		rec := do(t, h, http.MethodPost, "/api/training", `{"symbol":"aapl"}`)
		if bodyStatus(t, rec) == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatal("burst of training requests was never rate limited")
	}
}

func TestHealthz(t *testing.T) {
	h, _, _ := testHandler(t)
	rec := do(t, h, http.MethodGet, "/healthz", "")
	if got := bodyStatus(t, rec); got != http.StatusOK {
		t.Fatalf("want 200 in body, got %d: %s", got, rec.Body.String())
	}
}

func TestTrainingStatusReturnsLedger(t *testing.T) {
	h, _, reg := testHandler(t)
	if err := reg.SetStatus("AAPL", models.TrainingComplete, nil); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	rec := do(t, h, http.MethodGet, "/api/training/status", "")
	if got := bodyStatus(t, rec); got != http.StatusOK {
		t.Fatalf("want 200 in body, got %d: %s", got, rec.Body.String())
	}
	var resp struct {
		Data []models.LedgerEntry `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Symbol != "AAPL" {
		t.Fatalf("unexpected ledger payload: %+v", resp.Data)
	}
}

func TestMapPredictionError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", models.ErrNotFound, http.StatusNotFound, "ERR_NOT_FOUND"},
		{"not trained", models.ErrNotTrained, http.StatusConflict, "ERR_NOT_TRAINED"},
		{"insufficient history", &models.InsufficientHistoryError{Symbol: "X", Have: 50, Required: 130}, http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_HISTORY"},
		{"anything else", errors.New("boom"), http.StatusInternalServerError, "ERR_PREDICTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := mapPredictionError(tt.err)
			if appErr.Status != tt.wantStatus || appErr.Code != tt.wantCode {
				t.Fatalf("got status=%d code=%s, want status=%d code=%s", appErr.Status, appErr.Code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}
