package models

import "testing"

func TestDetectionPercent(t *testing.T) {
	tests := []struct {
		name string
		row  StatRow
		want float64
	}{
		{
			name: "zero registered yields zero",
			row:  StatRow{Registered: 0, Detected: 5},
			want: 0,
		},
		{
			name: "full detection",
			row:  StatRow{Registered: 10, Detected: 10},
			want: 100,
		},
		{
			name: "rounded to two decimals",
			row:  StatRow{Registered: 3, Detected: 1},
			want: 33.33,
		},
		{
			name: "rounds up",
			row:  StatRow{Registered: 3, Detected: 2},
			want: 66.67,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.DetectionPercent(); got != tt.want {
				t.Errorf("DetectionPercent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvictionSummaryNormalize(t *testing.T) {
	tests := []struct {
		name        string
		in          ConvictionSummary
		wantDecided int
	}{
		{
			name:        "decided inferred from components",
			in:          ConvictionSummary{Decided: 0, Convicted: 9, Acquitted: 6},
			wantDecided: 15,
		},
		{
			name:        "explicit decided kept",
			in:          ConvictionSummary{Decided: 20, Convicted: 9, Acquitted: 6},
			wantDecided: 20,
		},
		{
			name:        "all zero stays zero",
			in:          ConvictionSummary{},
			wantDecided: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := tt.in
			cs.Normalize()
			if cs.Decided != tt.wantDecided {
				t.Errorf("Decided = %d, want %d", cs.Decided, tt.wantDecided)
			}
		})
	}
}

func TestConvictionPercent(t *testing.T) {
	cs := ConvictionSummary{Decided: 15, Convicted: 9, Acquitted: 6}
	if got := cs.ConvictionPercent(); got != 60 {
		t.Errorf("ConvictionPercent() = %v, want 60", got)
	}

	empty := ConvictionSummary{}
	if got := empty.ConvictionPercent(); got != 0 {
		t.Errorf("ConvictionPercent() on zero decided = %v, want 0", got)
	}
}
