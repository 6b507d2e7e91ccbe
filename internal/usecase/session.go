package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"AutoTrade/internal/domain/models"
	drepo "AutoTrade/internal/domain/repository"
	dsvc "AutoTrade/internal/domain/service"
	"AutoTrade/internal/services/ledger"
	"AutoTrade/pkg/logger"
)

// SignalModel is the learned classifier as the scheduler uses it.
type SignalModel interface {
	Analyze(fv models.FeatureVector, symbol string) models.Signal
	Update(ctx context.Context, fv models.FeatureVector, tradeID string, outcome models.Outcome) (string, error)
	ResolveLabel(tradeID string, outcome models.Outcome) error
	AwaitingLabel(tradeID string) bool
	Status() models.ModelStatus
}

// RiskGate is the risk assessor as the scheduler uses it.
type RiskGate interface {
	Assess(s *models.MarketSnapshot, f models.ExternalFactors, sig models.Signal) models.RiskAssessment
	SetPortfolioValue(v float64)
	RecordPnL(pnl float64)
	CurrentLevel() models.RiskLevel
}

type SessionConfig struct {
	Symbols     []string
	Interval    time.Duration
	TickTimeout time.Duration
	Strategy    string
}

// TickResult is what one decision cycle produced.
type TickResult struct {
	Symbol   string
	Signal   models.Signal
	Risk     *models.RiskAssessment
	Trade    *models.TradeRecord
	Err      error
	Duration time.Duration
}

// Session is the trading scheduler: one worker running a decision cycle per
// interval while started. Ledger, classifier and assessor state is mutated
// only from that worker; outcomes are queued and applied at tick start.
type Session struct {
	cfg        SessionConfig
	market     drepo.MarketDataProvider
	extractor  dsvc.FeatureExtractor
	model      SignalModel
	risk       RiskGate
	executor   *ledger.Executor
	trades     drepo.TradeStore
	notifier   *Notifier
	outcomes   *OutcomeQueue
	metrics    drepo.Metrics
	log        *logger.Logger
	applyMu    sync.Mutex
	cycleMu    sync.Mutex
	symbolNext int

	mu       sync.Mutex
	running  bool
	strategy string
	stopCh   chan struct{}
	done     chan struct{}
	ticks    int64
	lastTick time.Time
	lastErr  string
}

func NewSession(
	cfg SessionConfig,
	market drepo.MarketDataProvider,
	extractor dsvc.FeatureExtractor,
	model SignalModel,
	risk RiskGate,
	executor *ledger.Executor,
	trades drepo.TradeStore,
	notifier *Notifier,
	outcomes *OutcomeQueue,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = 15 * time.Second
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "AI_Strategy"
	}
	if outcomes == nil {
		outcomes = NewOutcomeQueue()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		cfg:       cfg,
		market:    market,
		extractor: extractor,
		model:     model,
		risk:      risk,
		executor:  executor,
		trades:    trades,
		notifier:  notifier,
		outcomes:  outcomes,
		metrics:   metrics,
		log:       log.With(logger.String("component", "session")),
	}
}

// Start launches the worker. ctx bounds the worker's lifetime, not the call.
// Starting a running session returns ErrAlreadyRunning.
func (s *Session) Start(ctx context.Context, strategy string) error {
	if len(s.cfg.Symbols) == 0 {
		return fmt.Errorf("%w: no symbols configured", models.ErrInvalidOrder)
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return models.ErrAlreadyRunning
	}
	if strategy == "" {
		strategy = s.cfg.Strategy
	}
	prev := s.done
	stop, done := make(chan struct{}), make(chan struct{})
	s.running, s.strategy = true, strategy
	s.stopCh, s.done = stop, done
	s.mu.Unlock()

	s.log.Info("trading started", logger.String("strategy", strategy), logger.Strings("symbols", s.cfg.Symbols))
	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		s.loop(ctx, stop)
	}()
	return nil
}

// Stop asks the worker to exit. A tick in flight completes first; the wait
// between ticks is cut short. Stopping an idle session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.log.Info("trading stopped", logger.String("strategy", s.strategy))
}

// Wait blocks until the worker has exited or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) loop(ctx context.Context, stop <-chan struct{}) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.abandon(stop)
			return
		default:
		}

		s.RunOnce(ctx)

		timer.Reset(s.cfg.Interval)
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.abandon(stop)
			return
		case <-timer.C:
		}
	}
}

// abandon marks the session idle after its context ended, unless a newer
// start already replaced it.
func (s *Session) abandon(stop <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.stopCh == stop {
		s.running = false
		close(s.stopCh)
		s.log.Info("trading stopped on shutdown")
	}
}

func (s *Session) currentStrategy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.strategy == "" {
		return s.cfg.Strategy
	}
	return s.strategy
}

func (s *Session) nextSymbol() string {
	sym := s.cfg.Symbols[s.symbolNext%len(s.cfg.Symbols)]
	s.symbolNext++
	return sym
}

// RunOnce runs one decision cycle. Failures downgrade the cycle to no-trade
// and are reported in the result; they never propagate as panics.
func (s *Session) RunOnce(ctx context.Context) (res TickResult) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, s.cfg.TickTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("tick panic: %v", r)
		}
		res.Duration = time.Since(start)
		s.finish(res)
	}()

	s.applyOutcomes(tctx)
	if len(s.cfg.Symbols) == 0 {
		res.Err = fmt.Errorf("%w: no symbols configured", models.ErrDataUnavailable)
		return res
	}
	res.Symbol = s.nextSymbol()

	snap, err := s.market.Snapshot(tctx, res.Symbol)
	if err != nil {
		res.Err = err
		return res
	}
	if snap == nil {
		res.Err = models.ErrDataUnavailable
		return res
	}

	factors, err := s.market.ExternalFactors(tctx, res.Symbol)
	if err != nil {
		s.log.Warn("external factors degraded", logger.String("symbol", res.Symbol), logger.Error(err))
	}
	if factors == nil {
		factors = models.ExternalFactors{}
	}

	fv, err := s.extractor.Extract(snap, factors)
	if err != nil {
		res.Err = err
		return res
	}

	res.Signal = s.model.Analyze(fv, res.Symbol)
	s.risk.SetPortfolioValue(s.executor.Ledger().Revalue())
	ra := s.risk.Assess(snap, factors, res.Signal)
	res.Risk = &ra
	s.metrics.RecordRiskScore(res.Symbol, ra.Score)

	var tradeID string
	if res.Signal.ShouldTrade && res.Signal.Side != models.SideHold && ra.Level == models.RiskLow {
		rec, err := s.executor.Execute(tctx, res.Symbol, res.Signal.Side, ra.RecommendedQuantity, s.currentStrategy())
		if err != nil {
			res.Err = err
		} else {
			res.Trade = &rec
			tradeID = rec.ID
			s.record(tctx, rec)
		}
	}

	if _, err := s.model.Update(tctx, fv, tradeID, ""); err != nil {
		s.metrics.RecordError("model_persist")
		s.log.Error("model state not persisted", logger.Error(err))
	}
	return res
}

// record persists and announces an executed trade. Neither step can undo it.
func (s *Session) record(ctx context.Context, rec models.TradeRecord) {
	if s.trades != nil {
		if err := s.trades.Save(ctx, rec); err != nil {
			s.metrics.RecordError("trade_store")
			s.log.Error("trade not persisted", logger.String("trade_id", rec.ID), logger.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.Notify(rec)
	}
}

func (s *Session) finish(res TickResult) {
	result := "no_trade"
	switch {
	case res.Trade != nil:
		result = "traded"
	case res.Err != nil:
		var rej *models.Rejection
		if errors.As(res.Err, &rej) {
			result = "rejected"
		} else {
			result = "error"
			s.metrics.RecordError(models.ErrorKind(res.Err))
		}
	}
	s.metrics.RecordTick(result, res.Duration)

	s.mu.Lock()
	s.ticks++
	s.lastTick = time.Now()
	s.lastErr = ""
	if res.Err != nil {
		s.lastErr = res.Err.Error()
	}
	s.mu.Unlock()

	fields := []logger.Field{
		logger.String("symbol", res.Symbol),
		logger.String("result", result),
		logger.String("side", string(res.Signal.Side)),
		logger.Float64("confidence", res.Signal.Confidence),
		logger.Bool("should_trade", res.Signal.ShouldTrade),
		logger.Duration("duration", res.Duration),
	}
	if res.Risk != nil {
		fields = append(fields,
			logger.String("risk_level", string(res.Risk.Level)),
			logger.Float64("risk_score", res.Risk.Score),
			logger.Int("recommended_qty", res.Risk.RecommendedQuantity))
	}
	if res.Trade != nil {
		fields = append(fields, logger.String("trade_id", res.Trade.ID))
	}
	if res.Err != nil && result == "error" {
		fields = append(fields, logger.String("kind", models.ErrorKind(res.Err)), logger.Error(res.Err))
		s.log.Warn("tick", fields...)
		return
	}
	if res.Err != nil {
		fields = append(fields, logger.Error(res.Err))
	}
	s.log.Info("tick", fields...)
}

// SubmitOutcome queues a resolved outcome for a trade awaiting its label.
// While idle the outcome is applied right away.
func (s *Session) SubmitOutcome(ctx context.Context, o models.TradeOutcome) error {
	if !o.Outcome.Resolved() {
		return fmt.Errorf("%w: outcome %q is not a label", models.ErrInvalidOrder, o.Outcome)
	}
	if !s.model.AwaitingLabel(o.TradeID) {
		return fmt.Errorf("%w: %s", models.ErrUnknownTrade, o.TradeID)
	}
	if err := s.outcomes.Push(o); err != nil {
		return err
	}
	if !s.Running() {
		s.applyOutcomes(ctx)
	}
	return nil
}

func (s *Session) applyOutcomes(ctx context.Context) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	for _, o := range s.outcomes.Drain() {
		if err := s.model.ResolveLabel(o.TradeID, o.Outcome); err != nil {
			s.log.Warn("outcome not applied to model", logger.String("trade_id", o.TradeID), logger.Error(err))
			if errors.Is(err, models.ErrUnknownTrade) {
				continue
			}
		}
		s.executor.Ledger().SetOutcome(o)
		s.risk.RecordPnL(o.PnL)
		if s.trades != nil {
			if err := s.trades.UpdateOutcome(ctx, o); err != nil {
				s.metrics.RecordError("trade_store")
				s.log.Warn("outcome not persisted", logger.String("trade_id", o.TradeID), logger.Error(err))
			}
		}
		s.log.Info("outcome applied",
			logger.String("trade_id", o.TradeID),
			logger.String("outcome", string(o.Outcome)),
			logger.Float64("pnl", o.PnL))
	}
}

// Status reports the scheduler, risk and model state.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	st := models.SessionStatus{
		Running:   s.running,
		Strategy:  s.strategy,
		Ticks:     s.ticks,
		LastError: s.lastErr,
	}
	if !s.lastTick.IsZero() {
		t := s.lastTick
		st.LastTickAt = &t
	}
	s.mu.Unlock()
	st.RiskLevel = s.risk.CurrentLevel()
	st.Model = s.model.Status()
	return st
}
