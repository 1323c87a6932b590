package api

import (
	"errors"
	"net/http"

	models "FinPredict/internal/domain/models"
	domrepo "FinPredict/internal/domain/repository"
	"FinPredict/internal/service/ratelimit"
	"FinPredict/internal/usecase"
	xhttp "FinPredict/pkg/http"
	xlogger "FinPredict/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PredictionsEchoHandler exposes the forecasting API over Echo.
type PredictionsEchoHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	trigger   *usecase.TrainingTrigger
	ledger    domrepo.TrainingLedger
	limiter   *ratelimit.Limiter
}

func NewPredictionsEchoHandler(logger *xlogger.Logger, predictor *usecase.Predictor, trigger *usecase.TrainingTrigger, ledger domrepo.TrainingLedger) *PredictionsEchoHandler {
	return &PredictionsEchoHandler{
		logger:    logger,
		predictor: predictor,
		trigger:   trigger,
		ledger:    ledger,
		// training triggers are expensive: small burst, slow refill per client
		limiter: ratelimit.New(5, 0.5),
	}
}

func (h *PredictionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.GET("/predictions/:symbol", h.Predictions)
	g.GET("/predictions/:symbol/:horizon", h.Prediction)
	g.POST("/training", h.Train)
	g.GET("/training/status", h.TrainingStatus)
}

// Healthz is a liveness probe.
func (h *PredictionsEchoHandler) Healthz(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Predictions serves the bundle set across every trained horizon.
func (h *PredictionsEchoHandler) Predictions(c echo.Context) error {
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	bundles, err := h.predictor.PredictAll(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("predictions usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapPredictionError(err))
	}
	return xhttp.SuccessResponse(c, bundles)
}

// Prediction serves one (symbol, horizon) bundle.
func (h *PredictionsEchoHandler) Prediction(c echo.Context) error {
	req := &models.PredictionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	bundle, err := h.predictor.Predict(c.Request().Context(), req.Symbol, req.Horizon)
	if err != nil {
		h.logger.Error("prediction usecase error",
			xlogger.String("symbol", req.Symbol),
			xlogger.Int("horizon", req.Horizon),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, mapPredictionError(err))
	}
	return xhttp.SuccessResponse(c, bundle)
}

// Train enqueues fire-and-forget training for one symbol or for all.
func (h *PredictionsEchoHandler) Train(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP()) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many training requests", http.StatusTooManyRequests))
	}

	req := &models.TrainingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	handle, err := h.trigger.Trigger(c.Request().Context(), req.Symbol, req.All)
	if err != nil {
		h.logger.Error("training trigger error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapPredictionError(err))
	}
	return xhttp.CreatedResponse(c, handle)
}

// TrainingStatus reports the batch ledger.
func (h *PredictionsEchoHandler) TrainingStatus(c echo.Context) error {
	entries, err := h.ledger.Entries()
	if err != nil {
		h.logger.Error("ledger read error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to read training ledger"))
	}
	return xhttp.SuccessResponse(c, entries)
}

// mapPredictionError translates domain errors to transport errors: unknown
// symbol 404, untrained model 409, unusable history 422, anything else 500.
func mapPredictionError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrNotTrained):
		return xhttp.NewAppError("ERR_NOT_TRAINED", "", err.Error(), http.StatusConflict).WithError(err)
	case models.IsInsufficientHistory(err):
		return xhttp.NewAppError("ERR_INSUFFICIENT_HISTORY", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	default:
		return xhttp.NewAppError("ERR_PREDICTION", "", "prediction failed", http.StatusInternalServerError).WithError(err)
	}
}
