package analytics

import (
	"testing"

	"github.com/good-yellow-bee/salescope/internal/models"
)

func TestClassify(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		name      string
		observed  float64
		baseline  Baseline
		wantZ     float64
		wantSev   models.Severity
		anomalous bool
	}{
		{
			name:     "within normal range",
			observed: 110,
			baseline: Baseline{Mean: 100, StdDev: 10},
			wantZ:    1.0,
		},
		{
			name:      "warning deviation",
			observed:  125,
			baseline:  Baseline{Mean: 100, StdDev: 10},
			wantZ:     2.5,
			wantSev:   models.SeverityWarning,
			anomalous: true,
		},
		{
			name:      "critical deviation",
			observed:  135,
			baseline:  Baseline{Mean: 100, StdDev: 10},
			wantZ:     3.5,
			wantSev:   models.SeverityCritical,
			anomalous: true,
		},
		{
			name:      "negative critical deviation",
			observed:  65,
			baseline:  Baseline{Mean: 100, StdDev: 10},
			wantZ:     -3.5,
			wantSev:   models.SeverityCritical,
			anomalous: true,
		},
		{
			name:      "exactly at warning threshold",
			observed:  120,
			baseline:  Baseline{Mean: 100, StdDev: 10},
			wantZ:     2.0,
			wantSev:   models.SeverityWarning,
			anomalous: true,
		},
		{
			name:      "exactly at critical threshold",
			observed:  130,
			baseline:  Baseline{Mean: 100, StdDev: 10},
			wantZ:     3.0,
			wantSev:   models.SeverityCritical,
			anomalous: true,
		},
		{
			name:     "flat series observation on mean",
			observed: 100,
			baseline: Baseline{Mean: 100, StdDev: 0},
			wantZ:    0,
		},
		{
			name:      "flat series observation above mean",
			observed:  100.01,
			baseline:  Baseline{Mean: 100, StdDev: 0},
			wantZ:     maxZScore,
			wantSev:   models.SeverityCritical,
			anomalous: true,
		},
		{
			name:      "flat series observation below mean",
			observed:  99.99,
			baseline:  Baseline{Mean: 100, StdDev: 0},
			wantZ:     -maxZScore,
			wantSev:   models.SeverityCritical,
			anomalous: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.observed, tt.baseline, thresholds)
			if got.ZScore != tt.wantZ {
				t.Errorf("ZScore = %v, want %v", got.ZScore, tt.wantZ)
			}
			if got.Anomalous != tt.anomalous {
				t.Errorf("Anomalous = %v, want %v", got.Anomalous, tt.anomalous)
			}
			if got.Severity != tt.wantSev {
				t.Errorf("Severity = %q, want %q", got.Severity, tt.wantSev)
			}
		})
	}
}

func TestThresholdsValid(t *testing.T) {
	tests := []struct {
		name string
		t    Thresholds
		want bool
	}{
		{"defaults", DefaultThresholds(), true},
		{"equal thresholds", Thresholds{WarningZ: 2, CriticalZ: 2}, true},
		{"critical below warning", Thresholds{WarningZ: 3, CriticalZ: 2}, false},
		{"zero warning", Thresholds{WarningZ: 0, CriticalZ: 3}, false},
		{"negative", Thresholds{WarningZ: -1, CriticalZ: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
