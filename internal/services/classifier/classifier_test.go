package classifier

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"AutoTrade/internal/domain/models"
)

type memStore struct {
	blob  []byte
	saves int
	err   error
}

func (m *memStore) Load(ctx context.Context) ([]byte, error) { return m.blob, nil }

func (m *memStore) Save(ctx context.Context, b []byte) error {
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.blob = b
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Trees = 15
	cfg.MaxDepth = 6
	return cfg
}

func vector(a, b float64) models.FeatureVector {
	return models.FeatureVector{{Name: "a", Value: a}, {Name: "b", Value: b}, {Name: "rsi", Value: 50}}
}

// feed adds n samples; the last labeled of them carry a label derived from the sign of a.
func feed(t *testing.T, c *Classifier, n, labeled int) error {
	t.Helper()
	var last error
	for i := 0; i < n; i++ {
		a := float64(i%10) - 4.5
		outcome := models.Outcome("")
		if i >= n-labeled {
			outcome = models.OutcomeLoss
			if a > 0 {
				outcome = models.OutcomeProfit
			}
		}
		if _, err := c.Update(context.Background(), vector(a, float64(i%3)), "", outcome); err != nil {
			last = err
		}
	}
	return last
}

func TestUntrainedNeverTrades(t *testing.T) {
	c := New(testConfig(), nil, nil)
	sig := c.Analyze(vector(1, 1), "AAPL")
	if sig.ShouldTrade || sig.Confidence != 0 || sig.Reason != models.ErrModelUntrained.Error() {
		t.Fatalf("untrained signal = %+v", sig)
	}
}

func TestRetrainCadence(t *testing.T) {
	cases := []struct {
		name    string
		n       int
		labeled int
		want    bool
	}{
		{"49 samples", 49, 49, false},
		{"50 samples all labeled", 50, 50, false},
		{"51 samples", 51, 51, false},
		{"100 samples few labels", 100, 49, false},
		{"retrain fires at 100 samples with 50 labels", 100, 50, true},
		{"retrain fires at 150 samples with 60 labels", 150, 60, true},
		{"150 samples few labels", 150, 49, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store := &memStore{}
			cl := New(testConfig(), store, nil)
			if err := feed(t, cl, c.n, c.labeled); err != nil {
				t.Fatalf("feed: %v", err)
			}
			if cl.Trained() != c.want {
				t.Fatalf("trained = %v, want %v", cl.Trained(), c.want)
			}
			if (store.saves > 0) != c.want {
				t.Fatalf("saves = %d", store.saves)
			}
		})
	}
}

func TestTrainedModelSeparatesClasses(t *testing.T) {
	cl := New(testConfig(), nil, nil)
	if err := feed(t, cl, 150, 150); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !cl.Trained() {
		t.Fatalf("expected model to be trained")
	}
	up := cl.Analyze(vector(4, 1), "AAPL")
	if !up.ShouldTrade || up.Confidence <= 0.7 {
		t.Fatalf("positive sample signal = %+v", up)
	}
	down := cl.Analyze(vector(-4, 1), "AAPL")
	if down.ShouldTrade {
		t.Fatalf("negative sample should not trade: %+v", down)
	}
	st := cl.Status()
	if st.PerformanceHistory != 2 || st.TrainingSamples != 150 || st.LabeledSamples != 150 {
		t.Fatalf("status = %+v", st)
	}
	if st.LastPerformance == nil || st.LastPerformance.Accuracy < 0.9 {
		t.Fatalf("last performance = %+v", st.LastPerformance)
	}
}

func TestRetrainIsDeterministic(t *testing.T) {
	a := New(testConfig(), nil, nil)
	b := New(testConfig(), nil, nil)
	feed(t, a, 100, 100)
	feed(t, b, 100, 100)
	for _, x := range []float64{-3, -0.5, 0.5, 3} {
		sa, sb := a.Analyze(vector(x, 2), "X"), b.Analyze(vector(x, 2), "X")
		if sa.Confidence != sb.Confidence || sa.ShouldTrade != sb.ShouldTrade {
			t.Fatalf("x=%v: %+v vs %+v", x, sa, sb)
		}
	}
}

func TestPersistenceFailureKeepsModel(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	cl := New(testConfig(), store, nil)
	err := feed(t, cl, 100, 100)
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if !cl.Trained() {
		t.Fatalf("in-memory model should survive a failed save")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	store := &memStore{}
	cl := New(testConfig(), store, nil)
	feed(t, cl, 100, 100)

	restored := New(testConfig(), store, nil)
	if err := restored.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored.Trained() || restored.Status().TrainingSamples != 100 {
		t.Fatalf("restored status = %+v", restored.Status())
	}
	if got, want := restored.Analyze(vector(3, 1), "X"), cl.Analyze(vector(3, 1), "X"); got.Confidence != want.Confidence {
		t.Fatalf("restored confidence %v, want %v", got.Confidence, want.Confidence)
	}
}

func TestRestoreEmptyStore(t *testing.T) {
	cl := New(testConfig(), &memStore{}, nil)
	if err := cl.Restore(context.Background()); err != nil || cl.Trained() {
		t.Fatalf("Restore on empty store: err=%v trained=%v", err, cl.Trained())
	}
}

func TestResolveLabel(t *testing.T) {
	cl := New(testConfig(), nil, nil)
	if _, err := cl.Update(context.Background(), vector(1, 1), "trade-1", ""); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if st := cl.Status(); st.PendingLabels != 1 || st.LabeledSamples != 0 {
		t.Fatalf("status = %+v", st)
	}
	if err := cl.ResolveLabel("trade-1", models.OutcomeProfit); err != nil {
		t.Fatalf("ResolveLabel: %v", err)
	}
	if st := cl.Status(); st.PendingLabels != 0 || st.LabeledSamples != 1 {
		t.Fatalf("status = %+v", st)
	}
	if err := cl.ResolveLabel("trade-1", models.OutcomeLoss); !errors.Is(err, models.ErrUnknownTrade) {
		t.Fatalf("second resolve err = %v", err)
	}
	if err := cl.ResolveLabel("trade-2", models.OutcomePending); err == nil {
		t.Fatalf("pending is not a label")
	}
}

func TestInsights(t *testing.T) {
	cl := New(testConfig(), nil, nil)
	ins := cl.Insights()
	if ins.ConfidenceTrend.Trend != "Insufficient data" || ins.Performance != nil {
		t.Fatalf("empty insights = %+v", ins)
	}
	if len(ins.Recommendations) != 1 || ins.Recommendations[0] != adviceMoreData {
		t.Fatalf("recommendations = %v", ins.Recommendations)
	}

	for i, acc := range []float64{0.5, 0.55, 0.9} {
		cl.performance = append(cl.performance, models.PerformanceEntry{Timestamp: time.Unix(int64(i), 0), Accuracy: acc})
	}
	ins = cl.Insights()
	if ins.ConfidenceTrend.Trend != "improving" || ins.ConfidenceTrend.CurrentAccuracy != 0.9 {
		t.Fatalf("trend = %+v", ins.ConfidenceTrend)
	}
	if ins.ConfidenceTrend.AverageAccuracy != 0.65 {
		t.Fatalf("average = %v", ins.ConfidenceTrend.AverageAccuracy)
	}
	if ins.Recommendations[0] != adviceHighAccuracy {
		t.Fatalf("recommendations = %v", ins.Recommendations)
	}
}

func TestFeatureImportanceTopTen(t *testing.T) {
	cl := New(testConfig(), nil, nil)
	fv := make(models.FeatureVector, 12)
	for i := range fv {
		fv[i] = models.Feature{Name: fmt.Sprintf("f%d", i)}
	}
	for i := 0; i < 100; i++ {
		for j := range fv {
			fv[j].Value = float64((i*(j+1))%7) - 3
		}
		outcome := models.OutcomeLoss
		if fv[0].Value > 0 {
			outcome = models.OutcomeProfit
		}
		cl.Update(context.Background(), fv, "", outcome)
	}
	imp := cl.Insights().FeatureImportance
	if len(imp) != 10 {
		t.Fatalf("importance entries = %d", len(imp))
	}
	for i := 1; i < len(imp); i++ {
		if imp[i].Importance > imp[i-1].Importance {
			t.Fatalf("importances not sorted: %+v", imp)
		}
	}
}
