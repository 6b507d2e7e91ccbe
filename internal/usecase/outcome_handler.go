package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	pkgkafka "AutoTrade/pkg/kafka"
	"AutoTrade/pkg/logger"
)

// OutcomeSubmitter accepts resolved trade outcomes.
type OutcomeSubmitter interface {
	SubmitOutcome(ctx context.Context, o models.TradeOutcome) error
}

// OutcomeHandler consumes resolved trade outcomes from Kafka.
// Message schema: {trade_id, outcome, pnl}.
type OutcomeHandler struct {
	topic   string
	target  OutcomeSubmitter
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewOutcomeHandler(topic string, target OutcomeSubmitter, metrics domrepo.Metrics, log *logger.Logger) *OutcomeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OutcomeHandler{topic: topic, target: target, metrics: metrics, log: log.With(logger.String("component", "outcome_handler"))}
}

func (h *OutcomeHandler) Topic() string { return h.topic }

// Handle returns an error only for undecodable payloads. Outcomes for unknown
// trades or with invalid labels are logged and skipped so they are not retried.
func (h *OutcomeHandler) Handle(ctx context.Context, b []byte) error {
	var o models.TradeOutcome
	if err := json.Unmarshal(b, &o); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode outcome: %w", err)
	}
	o.Outcome = models.Outcome(strings.ToUpper(string(o.Outcome)))

	err := h.target.SubmitOutcome(ctx, o)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrUnknownTrade), errors.Is(err, models.ErrInvalidOrder):
		h.metrics.RecordError("outcome_" + models.ErrorKind(err))
		h.log.Warn("outcome skipped", logger.String("trade_id", o.TradeID), logger.Error(err))
		return nil
	default:
		return err
	}
}

var _ pkgkafka.MessageHandler = (*OutcomeHandler)(nil)
