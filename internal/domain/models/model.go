package models

import "time"

// PerformanceEntry records held-out metrics of one retrain.
type PerformanceEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	Accuracy        float64   `json:"accuracy"`
	Precision       float64   `json:"precision"`
	Recall          float64   `json:"recall"`
	TrainingSamples int       `json:"training_samples"`
}

// ConfidenceTrend summarizes recent accuracy.
type ConfidenceTrend struct {
	Trend           string  `json:"trend"`
	CurrentAccuracy float64 `json:"current_accuracy,omitempty"`
	AverageAccuracy float64 `json:"average_accuracy,omitempty"`
}

// FeatureImportance is one entry of the importance ranking.
type FeatureImportance struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// Insights is the classifier's self-report.
type Insights struct {
	Performance       *PerformanceEntry   `json:"model_performance,omitempty"`
	FeatureImportance []FeatureImportance `json:"feature_importance"`
	ConfidenceTrend   ConfidenceTrend     `json:"confidence_trend"`
	Recommendations   []string            `json:"recommendations"`
}

// ModelStatus is the classifier's status summary.
type ModelStatus struct {
	Trained             bool              `json:"model_loaded"`
	TrainingSamples     int               `json:"training_samples"`
	LabeledSamples      int               `json:"labeled_samples"`
	PendingLabels       int               `json:"pending_labels"`
	PerformanceHistory  int               `json:"performance_history"`
	ConfidenceThreshold float64           `json:"confidence_threshold"`
	LastPerformance     *PerformanceEntry `json:"last_performance,omitempty"`
}

// SessionStatus is what the control surface reports about the scheduler.
type SessionStatus struct {
	Running    bool        `json:"running"`
	Strategy   string      `json:"strategy,omitempty"`
	RiskLevel  RiskLevel   `json:"risk_level"`
	Model      ModelStatus `json:"model_status"`
	Ticks      int64       `json:"ticks"`
	LastTickAt *time.Time  `json:"last_tick_at,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
}
