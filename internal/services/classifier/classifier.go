package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/domain/repository"
	"AutoTrade/pkg/logger"
)

const stateVersion = 1

// Config tunes the classifier and its retraining cadence.
type Config struct {
	Trees               int
	MaxDepth            int
	Seed                int64
	ConfidenceThreshold float64
	RetrainEvery        int
	MinSamples          int
	MinLabeled          int
	TestFraction        float64
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		Trees:               100,
		MaxDepth:            10,
		Seed:                42,
		ConfidenceThreshold: 0.7,
		RetrainEvery:        50,
		MinSamples:          100,
		MinLabeled:          50,
		TestFraction:        0.2,
	}
}

// Sample is one buffered training example.
type Sample struct {
	ID        string         `json:"id"`
	Features  []float64      `json:"features"`
	Timestamp time.Time      `json:"timestamp"`
	Outcome   models.Outcome `json:"outcome,omitempty"`
}

func (s Sample) labeled() bool { return s.Outcome.Resolved() }

// state is the persisted form of the model.
type state struct {
	Version     int                       `json:"version"`
	Names       []string                  `json:"names"`
	Forest      *Forest                   `json:"forest,omitempty"`
	Scaler      *Scaler                   `json:"scaler,omitempty"`
	Buffer      []Sample                  `json:"buffer"`
	Pending     map[string]string         `json:"pending"`
	Performance []models.PerformanceEntry `json:"performance"`
}

// Classifier is the online-learned trade/no-trade model plus the side heuristic.
// Mutations come from the scheduler worker; status reads may come from anywhere.
type Classifier struct {
	mu      sync.RWMutex
	cfg     Config
	log     *logger.Logger
	store   repository.ModelStore
	metrics repository.Metrics
	now     func() time.Time

	names       []string
	forest      *Forest
	scaler      *Scaler
	buffer      []Sample
	byID        map[string]int
	pending     map[string]string
	performance []models.PerformanceEntry
}

type Option func(*Classifier)

func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

func WithMetrics(m repository.Metrics) Option {
	return func(c *Classifier) { c.metrics = m }
}

// New returns an untrained classifier. store may be nil.
func New(cfg Config, store repository.ModelStore, log *logger.Logger, opts ...Option) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	c := &Classifier{
		cfg:     cfg,
		log:     log,
		store:   store,
		now:     time.Now,
		byID:    make(map[string]int),
		pending: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore loads a previously saved state. A missing state leaves the classifier untrained.
func (c *Classifier) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	blob, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load model: %v", models.ErrPersistence, err)
	}
	if blob == nil {
		return nil
	}
	var st state
	if err := json.Unmarshal(blob, &st); err != nil {
		return fmt.Errorf("%w: decode model: %v", models.ErrPersistence, err)
	}
	if st.Version != stateVersion {
		return fmt.Errorf("%w: unsupported model version %d", models.ErrPersistence, st.Version)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = st.Names
	c.forest = st.Forest
	c.scaler = st.Scaler
	c.buffer = st.Buffer
	c.performance = st.Performance
	c.pending = st.Pending
	if c.pending == nil {
		c.pending = make(map[string]string)
	}
	c.byID = make(map[string]int, len(c.buffer))
	for i, s := range c.buffer {
		c.byID[s.ID] = i
	}
	c.log.Info("model restored",
		logger.Bool("trained", c.forest != nil),
		logger.Int("samples", len(c.buffer)),
		logger.Int("retrains", len(c.performance)))
	return nil
}

// Trained reports whether a fitted model is available.
func (c *Classifier) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.forest != nil
}

// Analyze scores the feature vector. An untrained model never recommends a trade.
func (c *Classifier) Analyze(fv models.FeatureVector, symbol string) models.Signal {
	side := SelectSide(fv)

	c.mu.RLock()
	forest, scaler, names := c.forest, c.scaler, c.names
	threshold := c.cfg.ConfidenceThreshold
	c.mu.RUnlock()

	if forest == nil || scaler == nil {
		return models.Signal{Side: models.SideHold, Symbol: symbol, Reason: models.ErrModelUntrained.Error(), Features: fv}
	}
	if !sameLayout(names, fv) {
		return models.Signal{Side: models.SideHold, Symbol: symbol, Reason: "feature layout mismatch", Features: fv}
	}

	class, confidence := forest.Predict(scaler.Transform(fv.Values()))
	return models.Signal{
		ShouldTrade: class == 1 && confidence > threshold,
		Side:        side,
		Confidence:  round(confidence, 3),
		Symbol:      symbol,
		Reason:      fmt.Sprintf("AI confidence: %.3f", confidence),
		Features:    fv,
	}
}

// Update buffers the cycle's features. When tradeID is set the sample waits
// for that trade's outcome. A retrain runs when the buffer reaches a multiple
// of RetrainEvery with at least MinSamples samples and MinLabeled labels.
// Only persistence failures are returned; the in-memory model is kept.
func (c *Classifier) Update(ctx context.Context, fv models.FeatureVector, tradeID string, outcome models.Outcome) (string, error) {
	sample := Sample{
		ID:        uuid.NewString(),
		Features:  fv.Values(),
		Timestamp: c.now().UTC(),
	}
	if outcome.Resolved() {
		sample.Outcome = outcome
	}

	c.mu.Lock()
	if c.names == nil {
		c.names = fv.Names()
	}
	c.byID[sample.ID] = len(c.buffer)
	c.buffer = append(c.buffer, sample)
	if tradeID != "" && !sample.labeled() {
		c.pending[tradeID] = sample.ID
	}
	due := c.retrainDueLocked()
	c.mu.Unlock()

	if !due {
		return sample.ID, nil
	}
	return sample.ID, c.retrain(ctx)
}

// ResolveLabel attaches a realized outcome to the sample recorded for tradeID.
func (c *Classifier) ResolveLabel(tradeID string, outcome models.Outcome) error {
	if !outcome.Resolved() {
		return fmt.Errorf("%w: outcome %q is not a label", models.ErrInvalidOrder, outcome)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.pending[tradeID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownTrade, tradeID)
	}
	delete(c.pending, tradeID)
	if i, ok := c.byID[id]; ok {
		c.buffer[i].Outcome = outcome
	}
	return nil
}

// AwaitingLabel reports whether a sample is waiting for tradeID's outcome.
func (c *Classifier) AwaitingLabel(tradeID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.pending[tradeID]
	return ok
}

func (c *Classifier) labeledLocked() int {
	n := 0
	for _, s := range c.buffer {
		if s.labeled() {
			n++
		}
	}
	return n
}

func (c *Classifier) retrainDueLocked() bool {
	n := len(c.buffer)
	if n == 0 || c.cfg.RetrainEvery <= 0 || n%c.cfg.RetrainEvery != 0 || n < c.cfg.MinSamples {
		return false
	}
	return c.labeledLocked() >= c.cfg.MinLabeled
}

// retrain refits scaler and forest from scratch on labeled samples.
func (c *Classifier) retrain(ctx context.Context) error {
	c.mu.RLock()
	var X [][]float64
	var y []int
	for _, s := range c.buffer {
		if !s.labeled() {
			continue
		}
		X = append(X, s.Features)
		if s.Outcome == models.OutcomeProfit {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	c.mu.RUnlock()
	if len(X) < 2 {
		return nil
	}

	start := time.Now()
	trainX, trainY, testX, testY := split(X, y, c.cfg.TestFraction, c.cfg.Seed)
	scaler := FitScaler(toDense(trainX))
	forest, err := FitForest(ctx, scaler.TransformAll(toDense(trainX)), trainY, ForestConfig{
		Trees: c.cfg.Trees, MaxDepth: c.cfg.MaxDepth, Seed: c.cfg.Seed,
	})
	if err != nil {
		c.log.Warn("retrain aborted", logger.Error(err))
		return nil
	}

	pred := make([]int, len(testX))
	for i, x := range testX {
		pred[i], _ = forest.Predict(scaler.Transform(x))
	}
	acc, prec, rec := score(testY, pred)
	entry := models.PerformanceEntry{
		Timestamp:       c.now().UTC(),
		Accuracy:        acc,
		Precision:       prec,
		Recall:          rec,
		TrainingSamples: len(X),
	}

	c.mu.Lock()
	c.forest, c.scaler = forest, scaler
	c.performance = append(c.performance, entry)
	blob, merr := c.marshalLocked()
	c.mu.Unlock()

	c.log.Info("model retrained",
		logger.Float64("accuracy", acc),
		logger.Float64("precision", prec),
		logger.Float64("recall", rec),
		logger.Int("samples", len(X)),
		logger.Duration("took", time.Since(start)))
	if c.metrics != nil {
		c.metrics.RecordRetrain(acc)
	}

	if merr != nil {
		return fmt.Errorf("%w: encode model: %v", models.ErrPersistence, merr)
	}
	if c.store == nil {
		return nil
	}
	if err := c.store.Save(ctx, blob); err != nil {
		c.log.Error("model save failed", logger.Error(err))
		return fmt.Errorf("%w: save model: %v", models.ErrPersistence, err)
	}
	return nil
}

func (c *Classifier) marshalLocked() ([]byte, error) {
	return json.Marshal(state{
		Version:     stateVersion,
		Names:       c.names,
		Forest:      c.forest,
		Scaler:      c.scaler,
		Buffer:      c.buffer,
		Pending:     c.pending,
		Performance: c.performance,
	})
}

// Snapshot encodes the current state for a ModelStore.
func (c *Classifier) Snapshot() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.marshalLocked()
}

// Insights reports latest performance, top features, accuracy trend and advice.
func (c *Classifier) Insights() models.Insights {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.Insights{
		Performance:       c.lastPerformanceLocked(),
		FeatureImportance: c.importanceLocked(10),
		ConfidenceTrend:   c.trendLocked(),
		Recommendations:   c.recommendationsLocked(),
	}
}

// Status summarizes model state for the control surface.
func (c *Classifier) Status() models.ModelStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.ModelStatus{
		Trained:             c.forest != nil,
		TrainingSamples:     len(c.buffer),
		LabeledSamples:      c.labeledLocked(),
		PendingLabels:       len(c.pending),
		PerformanceHistory:  len(c.performance),
		ConfidenceThreshold: c.cfg.ConfidenceThreshold,
		LastPerformance:     c.lastPerformanceLocked(),
	}
}

func (c *Classifier) lastPerformanceLocked() *models.PerformanceEntry {
	if len(c.performance) == 0 {
		return nil
	}
	p := c.performance[len(c.performance)-1]
	p.Accuracy = round(p.Accuracy, 3)
	p.Precision = round(p.Precision, 3)
	p.Recall = round(p.Recall, 3)
	return &p
}

func (c *Classifier) importanceLocked(top int) []models.FeatureImportance {
	if c.forest == nil || len(c.forest.Importances) != len(c.names) {
		return []models.FeatureImportance{}
	}
	out := make([]models.FeatureImportance, len(c.names))
	for i, name := range c.names {
		out[i] = models.FeatureImportance{Name: name, Importance: c.forest.Importances[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if len(out) > top {
		out = out[:top]
	}
	for i := range out {
		out[i].Importance = round(out[i].Importance, 4)
	}
	return out
}

func (c *Classifier) trendLocked() models.ConfidenceTrend {
	if len(c.performance) < 2 {
		return models.ConfidenceTrend{Trend: "Insufficient data"}
	}
	recent := c.performance[max(0, len(c.performance)-5):]
	acc := make([]float64, len(recent))
	for i, p := range recent {
		acc[i] = p.Accuracy
	}
	first, last := acc[0], acc[len(acc)-1]
	trend := "stable"
	switch {
	case last > first:
		trend = "improving"
	case last < first:
		trend = "declining"
	}
	return models.ConfidenceTrend{
		Trend:           trend,
		CurrentAccuracy: round(last, 3),
		AverageAccuracy: round(stat.Mean(acc, nil), 3),
	}
}

const (
	adviceLowAccuracy  = "Model accuracy is low. Consider collecting more training data."
	adviceHighAccuracy = "Model is performing well. Consider increasing position sizes."
	adviceMoreData     = "More training data needed for better predictions."
	adviceDefault      = "Model is performing adequately. Continue monitoring."
)

func (c *Classifier) recommendationsLocked() []string {
	var out []string
	if p := c.lastPerformanceLocked(); p != nil {
		if p.Accuracy < 0.6 {
			out = append(out, adviceLowAccuracy)
		}
		if p.Accuracy > 0.8 {
			out = append(out, adviceHighAccuracy)
		}
	}
	if len(c.buffer) < 200 {
		out = append(out, adviceMoreData)
	}
	if len(out) == 0 {
		out = append(out, adviceDefault)
	}
	return out
}

// split shuffles with a fixed seed and holds out ceil(frac*n) rows for testing.
func split(X [][]float64, y []int, frac float64, seed int64) (trX [][]float64, trY []int, teX [][]float64, teY []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(len(X))
	nTest := int(math.Ceil(frac * float64(len(X))))
	if nTest >= len(X) {
		nTest = len(X) - 1
	}
	for k, i := range perm {
		if k < nTest {
			teX, teY = append(teX, X[i]), append(teY, y[i])
		} else {
			trX, trY = append(trX, X[i]), append(trY, y[i])
		}
	}
	return trX, trY, teX, teY
}

// score computes accuracy, precision and recall for class 1. Undefined ratios are 0.
func score(truth, pred []int) (acc, prec, rec float64) {
	if len(truth) == 0 {
		return 0, 0, 0
	}
	var correct, tp, fp, fn float64
	for i := range truth {
		switch {
		case truth[i] == pred[i]:
			correct++
			if pred[i] == 1 {
				tp++
			}
		case pred[i] == 1:
			fp++
		default:
			fn++
		}
	}
	acc = correct / float64(len(truth))
	if tp+fp > 0 {
		prec = tp / (tp + fp)
	}
	if tp+fn > 0 {
		rec = tp / (tp + fn)
	}
	return acc, prec, rec
}

func toDense(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return mat.NewDense(0, 0, nil)
	}
	w := len(rows[0])
	data := make([]float64, 0, len(rows)*w)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), w, data)
}

func sameLayout(names []string, fv models.FeatureVector) bool {
	if len(names) != len(fv) {
		return false
	}
	for i, f := range fv {
		if f.Name != names[i] {
			return false
		}
	}
	return true
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
