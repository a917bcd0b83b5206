package containers

import "testing"

func TestParseMemoryLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "256m", want: 256 * 1024 * 1024},
		{in: "256M", want: 256 * 1024 * 1024},
		{in: "1g", want: 1024 * 1024 * 1024},
		{in: "512k", want: 512 * 1024},
		{in: "100", want: 100},
		{in: "", wantErr: true},
		{in: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMemoryLimit(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseMemoryLimit(%q) = %d, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMemoryLimit(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseMemoryLimit(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
