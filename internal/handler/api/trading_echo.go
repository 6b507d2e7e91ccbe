package api

import (
	"context"
	"errors"
	"time"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	"AutoTrade/internal/repository"
	"AutoTrade/internal/services/ledger"
	"AutoTrade/internal/services/risk"
	"AutoTrade/internal/usecase"
	xhttp "AutoTrade/pkg/http"
	xlogger "AutoTrade/pkg/logger"

	"github.com/labstack/echo/v4"
)

const varConfidence = 0.95

// ModelView is the read side of the classifier the API exposes.
type ModelView interface {
	Insights() models.Insights
	Status() models.ModelStatus
}

// TradingEchoHandler is the control surface of the trading session.
type TradingEchoHandler struct {
	logger   *xlogger.Logger
	session  *usecase.Session
	model    ModelView
	ledger   *ledger.Ledger
	assessor *risk.Assessor
	trades   domrepo.TradeStore
	prices   domrepo.PriceSource
}

func NewTradingEchoHandler(
	logger *xlogger.Logger,
	session *usecase.Session,
	model ModelView,
	l *ledger.Ledger,
	assessor *risk.Assessor,
	trades domrepo.TradeStore,
	prices domrepo.PriceSource,
) *TradingEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &TradingEchoHandler{logger: logger, session: session, model: model, ledger: l, assessor: assessor, trades: trades, prices: prices}
}

func (h *TradingEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)

	g.POST("/trading/start", h.Start)
	g.POST("/trading/stop", h.Stop)
	g.GET("/trading/status", h.Status)

	g.GET("/ai/insights", h.Insights)

	g.GET("/portfolio", h.Portfolio)
	g.GET("/trades", h.Trades)
	g.POST("/trades/:id/outcome", h.Outcome)
	g.GET("/performance", h.Performance)

	g.GET("/risk/limits", h.RiskLimits)
	g.PUT("/risk/limits", h.UpdateRiskLimits)
	g.GET("/risk/check", h.RiskCheck)
}

func (h *TradingEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":        "ok",
		"running":       h.session.Running(),
		"model_trained": h.model.Status().Trained,
		"time":          time.Now().UTC(),
	})
}

func (h *TradingEchoHandler) Start(c echo.Context) error {
	req := &models.StartTradingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// the worker outlives this request
	ctx := context.WithoutCancel(c.Request().Context())
	if err := h.session.Start(ctx, req.Strategy); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, h.session.Status())
}

func (h *TradingEchoHandler) Stop(c echo.Context) error {
	h.session.Stop()
	return xhttp.SuccessResponse(c, h.session.Status())
}

func (h *TradingEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Status())
}

func (h *TradingEchoHandler) Insights(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.model.Insights())
}

// PortfolioResponse adds a simplified VaR to the ledger view.
type PortfolioResponse struct {
	models.PortfolioStatus
	ValueAtRisk float64 `json:"value_at_risk"`
}

func (h *TradingEchoHandler) Portfolio(c echo.Context) error {
	status := h.ledger.Status()
	return xhttp.SuccessResponse(c, PortfolioResponse{
		PortfolioStatus: status,
		ValueAtRisk:     risk.ValueAtRisk(h.ledger.PositionValues(), varConfidence),
	})
}

// TradeView is a trade with its mark-to-market P&L.
type TradeView struct {
	models.TradeRecord
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

func (h *TradingEchoHandler) Trades(c echo.Context) error {
	hist := h.ledger.History(xhttp.QueryInt(c, "limit", 50, 1, 1000))
	rows := make([]TradeView, 0, len(hist))
	for i := len(hist) - 1; i >= 0; i-- {
		t := hist[i]
		v := TradeView{TradeRecord: t}
		if h.prices != nil {
			if p, ok := h.prices.LastPrice(t.Symbol); ok {
				v.UnrealizedPnL = ledger.UnrealizedPnL(t, p)
			}
		}
		rows = append(rows, v)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *TradingEchoHandler) Outcome(c echo.Context) error {
	req := &models.OutcomeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	o := models.TradeOutcome{TradeID: c.Param("id"), Outcome: req.Outcome, PnL: req.PnL}
	if err := h.session.SubmitOutcome(c.Request().Context(), o); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.AcceptedResponse(c, o)
}

func (h *TradingEchoHandler) Performance(c echo.Context) error {
	if h.trades != nil {
		perf, err := h.trades.Performance(c.Request().Context())
		if err == nil {
			return xhttp.SuccessResponse(c, perf)
		}
		h.logger.Warn("trade store performance failed, using in-memory history", xlogger.Error(err))
	}
	var resolved, profitable int
	var pnl float64
	hist := h.ledger.History(0)
	for _, t := range hist {
		if !t.Outcome.Resolved() {
			continue
		}
		resolved++
		pnl += t.PnL
		if t.PnL > 0 {
			profitable++
		}
	}
	return xhttp.SuccessResponse(c, repository.Summarize(len(hist), resolved, profitable, pnl))
}

func (h *TradingEchoHandler) RiskLimits(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.assessor.State())
}

func (h *TradingEchoHandler) UpdateRiskLimits(c echo.Context) error {
	req := &models.RiskLimitsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	l := h.assessor.Limits()
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&l.MaxPositionSize, req.MaxPositionSize)
	set(&l.MaxDailyLoss, req.MaxDailyLoss)
	set(&l.MaxPortfolioRisk, req.MaxPortfolioRisk)
	set(&l.StopLossPct, req.StopLossPct)
	set(&l.TakeProfitPct, req.TakeProfitPct)
	if err := h.assessor.SetLimits(l); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("ERR_INVALID_RISK_LIMITS", err.Error()))
	}
	h.logger.Info("risk limits updated", xlogger.Any("limits", l))
	return xhttp.SuccessResponse(c, h.assessor.State())
}

// RiskCheckResponse is the verdict of a pure portfolio risk check.
type RiskCheckResponse struct {
	Allowed bool    `json:"allowed"`
	Message string  `json:"message"`
	Value   float64 `json:"trade_value"`
}

func (h *TradingEchoHandler) RiskCheck(c echo.Context) error {
	q := &models.RiskCheckQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ok, msg := h.assessor.CheckPortfolioRisk(q.TradeValue)
	return xhttp.SuccessResponse(c, RiskCheckResponse{Allowed: ok, Message: msg, Value: q.TradeValue})
}

func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrAlreadyRunning):
		return xhttp.ConflictError("ERR_ALREADY_RUNNING", err.Error())
	case errors.Is(err, models.ErrUnknownTrade):
		return xhttp.NotFoundErrorf("%v", err)
	case errors.Is(err, models.ErrInvalidOrder):
		return xhttp.UnprocessableError("ERR_INVALID_REQUEST", err.Error())
	default:
		return xhttp.InternalError(err.Error()).WithError(err)
	}
}
