package cmd

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestParseBBox(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    orb.Bound
		wantErr bool
	}{
		{
			name:  "valid bbox",
			input: "0,0,20,10",
			want:  orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{20, 10}},
		},
		{
			name:  "valid bbox with spaces",
			input: "1.5, 2.5, 3.5, 4.5",
			want:  orb.Bound{Min: orb.Point{1.5, 2.5}, Max: orb.Point{3.5, 4.5}},
		},
		{
			name:  "negative coordinates",
			input: "-40,-20.5,-10,5",
			want:  orb.Bound{Min: orb.Point{-40, -20.5}, Max: orb.Point{-10, 5}},
		},
		{
			name:    "too few values",
			input:   "0,0,20",
			wantErr: true,
		},
		{
			name:    "too many values",
			input:   "0,0,20,20,30",
			wantErr: true,
		},
		{
			name:    "invalid number",
			input:   "abc,0,20,20",
			wantErr: true,
		},
		{
			name:    "minX >= maxX",
			input:   "20,0,10,20",
			wantErr: true,
		},
		{
			name:    "minY >= maxY",
			input:   "0,5,20,5",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBBox(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseBBox(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("parseBBox(%q) unexpected error: %v", tt.input, err)
				return
			}
			if got != tt.want {
				t.Errorf("parseBBox(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
