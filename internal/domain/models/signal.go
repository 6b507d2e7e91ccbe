package models

// Side of a trade recommendation.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideHold Side = "HOLD"
)

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell || s == SideHold
}

// Feature is one named input of the classifier.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// FeatureVector keeps features in the classifier's input order.
type FeatureVector []Feature

// Get returns the value of the named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	for _, f := range v {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// Values returns the raw values in order.
func (v FeatureVector) Values() []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = f.Value
	}
	return out
}

// Names returns feature names in order.
func (v FeatureVector) Names() []string {
	out := make([]string, len(v))
	for i, f := range v {
		out[i] = f.Name
	}
	return out
}

// Signal is the cycle's trade recommendation.
type Signal struct {
	ShouldTrade bool          `json:"should_trade"`
	Side        Side          `json:"side"`
	Confidence  float64       `json:"confidence"`
	Symbol      string        `json:"symbol"`
	Reason      string        `json:"reason"`
	Features    FeatureVector `json:"features,omitempty"`
}
