package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/services/ledger"
)

type sessionFixture struct {
	session *Session
	market  *fakeMarket
	model   *fakeModel
	risk    *fakeRisk
	trades  *fakeTrades
	ledger  *ledger.Ledger
	sink    chan models.TradeRecord
}

func newFixture(t *testing.T, sig models.Signal, level models.RiskLevel, symbols ...string) *sessionFixture {
	t.Helper()
	if len(symbols) == 0 {
		symbols = []string{"AAPL"}
	}
	prices := quotes{}
	for _, s := range symbols {
		prices[s] = 100
	}
	f := &sessionFixture{
		market: &fakeMarket{},
		model:  newFakeModel(sig),
		risk:   &fakeRisk{level: level, qty: 10},
		trades: &fakeTrades{},
		ledger: ledger.New(100000, prices),
		sink:   make(chan models.TradeRecord, 4),
	}
	exec := ledger.NewExecutor(f.ledger, prices, nopMetrics{}, nil)
	notifier := NewNotifier(time.Second, nopMetrics{}, nil, chanSink{ch: f.sink}, failingSink{})
	f.session = NewSession(
		SessionConfig{Symbols: symbols, Interval: 10 * time.Millisecond, TickTimeout: time.Second},
		f.market, fakeExtractor{}, f.model, f.risk, exec, f.trades, notifier, NewOutcomeQueue(), nopMetrics{}, nil,
	)
	return f
}

var buySignal = models.Signal{ShouldTrade: true, Side: models.SideBuy, Confidence: 0.9}

func TestRunOnceExecutesLowRiskTrade(t *testing.T) {
	f := newFixture(t, buySignal, models.RiskLow)

	res := f.session.RunOnce(context.Background())
	if res.Err != nil {
		t.Fatalf("RunOnce error: %v", res.Err)
	}
	if res.Trade == nil || res.Trade.Quantity != 10 || res.Trade.Side != models.SideBuy {
		t.Fatalf("expected a 10 share buy, got %+v", res.Trade)
	}
	if f.ledger.Position("AAPL") != 10 || f.ledger.Cash() != 99000 {
		t.Fatalf("ledger not updated: pos=%d cash=%v", f.ledger.Position("AAPL"), f.ledger.Cash())
	}
	if len(f.trades.saved) != 1 || f.trades.saved[0].ID != res.Trade.ID {
		t.Fatalf("trade not persisted: %+v", f.trades.saved)
	}
	if ids := f.model.updateIDs(); len(ids) != 1 || ids[0] != res.Trade.ID {
		t.Fatalf("model update should carry the trade id, got %v", ids)
	}
	select {
	case got := <-f.sink:
		if got.ID != res.Trade.ID {
			t.Fatalf("sink got %s, want %s", got.ID, res.Trade.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("sink not notified")
	}
}

func TestRunOnceRequiresLowRisk(t *testing.T) {
	for _, level := range []models.RiskLevel{models.RiskMedium, models.RiskHigh} {
		f := newFixture(t, buySignal, level)
		res := f.session.RunOnce(context.Background())
		if res.Trade != nil || res.Err != nil {
			t.Fatalf("%s: expected no trade, got %+v err=%v", level, res.Trade, res.Err)
		}
		if ids := f.model.updateIDs(); len(ids) != 1 || ids[0] != "" {
			t.Fatalf("%s: expected one unlabeled update, got %v", level, ids)
		}
	}
}

func TestRunOnceHoldNeverTrades(t *testing.T) {
	f := newFixture(t, models.Signal{ShouldTrade: true, Side: models.SideHold, Confidence: 0.95}, models.RiskLow)
	if res := f.session.RunOnce(context.Background()); res.Trade != nil {
		t.Fatalf("HOLD must not trade: %+v", res.Trade)
	}
}

func TestRunOnceDataUnavailable(t *testing.T) {
	f := newFixture(t, buySignal, models.RiskLow)
	f.market.snap = func(string) (*models.MarketSnapshot, error) { return nil, nil }

	res := f.session.RunOnce(context.Background())
	if !errors.Is(res.Err, models.ErrDataUnavailable) {
		t.Fatalf("expected data unavailable, got %v", res.Err)
	}
	if len(f.model.updateIDs()) != 0 {
		t.Fatalf("no sample should be buffered without features")
	}
	if st := f.session.Status(); st.Ticks != 1 || st.LastError == "" {
		t.Fatalf("status should record the failed tick: %+v", st)
	}
}

func TestRunOnceFactorErrorDegrades(t *testing.T) {
	f := newFixture(t, buySignal, models.RiskLow)
	f.market.factorErr = errors.New("factors down")
	if res := f.session.RunOnce(context.Background()); res.Err != nil || res.Trade == nil {
		t.Fatalf("factor failure should not block the cycle: %+v", res)
	}
}

func TestRunOnceRecoversPanic(t *testing.T) {
	f := newFixture(t, buySignal, models.RiskLow)
	f.session.extractor = fakeExtractor{panicWith: "boom"}

	res := f.session.RunOnce(context.Background())
	if res.Err == nil || !strings.Contains(res.Err.Error(), "boom") {
		t.Fatalf("expected recovered panic, got %v", res.Err)
	}
	if f.session.Status().Ticks != 1 {
		t.Fatalf("panicking tick should still count")
	}
}

func TestRunOnceRotatesSymbols(t *testing.T) {
	f := newFixture(t, models.Signal{Side: models.SideHold}, models.RiskLow, "AAPL", "MSFT")
	for i := 0; i < 3; i++ {
		f.session.RunOnce(context.Background())
	}
	got := strings.Join(f.market.symbols(), ",")
	if got != "AAPL,MSFT,AAPL" {
		t.Fatalf("rotation = %s", got)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	f := newFixture(t, models.Signal{Side: models.SideHold}, models.RiskLow)
	ctx := context.Background()

	f.session.Stop() // idle stop is a no-op
	if err := f.session.Start(ctx, "momentum"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.session.Start(ctx, "momentum"); !errors.Is(err, models.ErrAlreadyRunning) {
		t.Fatalf("second start = %v, want ErrAlreadyRunning", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.session.Status().Ticks < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	st := f.session.Status()
	if !st.Running || st.Strategy != "momentum" || st.Ticks < 2 {
		t.Fatalf("unexpected status %+v", st)
	}

	f.session.Stop()
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := f.session.Wait(wctx); err != nil {
		t.Fatalf("worker did not exit: %v", err)
	}
	ticks := f.session.Status().Ticks
	time.Sleep(30 * time.Millisecond)
	if f.session.Status().Ticks != ticks {
		t.Fatalf("ticks continued after stop")
	}

	if err := f.session.Start(ctx, ""); err != nil {
		t.Fatalf("restart: %v", err)
	}
	f.session.Stop()
	_ = f.session.Wait(wctx)
}

func TestStartEndsWithContext(t *testing.T) {
	f := newFixture(t, models.Signal{Side: models.SideHold}, models.RiskLow)
	ctx, cancel := context.WithCancel(context.Background())
	if err := f.session.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	wctx, wcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer wcancel()
	if err := f.session.Wait(wctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if f.session.Running() {
		t.Fatalf("session should be idle after its context ended")
	}
}

func TestSubmitOutcomeWhileIdle(t *testing.T) {
	f := newFixture(t, buySignal, models.RiskLow)
	res := f.session.RunOnce(context.Background())
	if res.Trade == nil {
		t.Fatalf("setup trade failed: %v", res.Err)
	}
	id := res.Trade.ID

	if err := f.session.SubmitOutcome(context.Background(), models.TradeOutcome{TradeID: id, Outcome: models.OutcomePending}); !errors.Is(err, models.ErrInvalidOrder) {
		t.Fatalf("pending is not a label: %v", err)
	}
	if err := f.session.SubmitOutcome(context.Background(), models.TradeOutcome{TradeID: "nope", Outcome: models.OutcomeLoss}); !errors.Is(err, models.ErrUnknownTrade) {
		t.Fatalf("unknown trade: %v", err)
	}

	o := models.TradeOutcome{TradeID: id, Outcome: models.OutcomeProfit, PnL: 42.5}
	if err := f.session.SubmitOutcome(context.Background(), o); err != nil {
		t.Fatalf("SubmitOutcome: %v", err)
	}
	if f.model.resolved[id] != models.OutcomeProfit {
		t.Fatalf("label not resolved")
	}
	if f.risk.pnl != 42.5 {
		t.Fatalf("daily pnl = %v", f.risk.pnl)
	}
	if len(f.trades.outcomes) != 1 {
		t.Fatalf("outcome not persisted")
	}
	hist := f.ledger.History(1)
	if len(hist) != 1 || hist[0].Outcome != models.OutcomeProfit || hist[0].PnL != 42.5 {
		t.Fatalf("ledger history not labeled: %+v", hist)
	}
}

func TestOutcomeQueuedWhileRunningAppliesNextTick(t *testing.T) {
	f := newFixture(t, buySignal, models.RiskLow)
	res := f.session.RunOnce(context.Background())
	id := res.Trade.ID

	f.session.mu.Lock()
	f.session.running = true
	f.session.mu.Unlock()

	if err := f.session.SubmitOutcome(context.Background(), models.TradeOutcome{TradeID: id, Outcome: models.OutcomeLoss, PnL: -5}); err != nil {
		t.Fatalf("SubmitOutcome: %v", err)
	}
	if f.session.outcomes.Len() != 1 || f.risk.pnl != 0 {
		t.Fatalf("outcome should wait for the worker")
	}

	f.session.RunOnce(context.Background())
	if f.session.outcomes.Len() != 0 || f.risk.pnl != -5 {
		t.Fatalf("outcome not applied at tick start: queued=%d pnl=%v", f.session.outcomes.Len(), f.risk.pnl)
	}
}
