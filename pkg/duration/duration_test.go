package duration

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "4s", want: 4 * time.Second},
		{in: "300000", want: 5 * time.Minute},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got.Duration() != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got.Duration(), tt.want)
			}
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	b, err := json.Marshal(Duration(5 * time.Minute))
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if string(b) != `"5m0s"` {
		t.Errorf("expected \"5m0s\", got %s", b)
	}

	var d Duration
	if err := json.Unmarshal([]byte(`4000`), &d); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if d.Duration() != 4*time.Second {
		t.Errorf("expected 4s from milliseconds, got %v", d.Duration())
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	yamlData := "ttl: 300000\ntimeout: 4s\n"
	var config struct {
		TTL     Duration `yaml:"ttl"`
		Timeout Duration `yaml:"timeout"`
	}
	if err := yaml.Unmarshal([]byte(yamlData), &config); err != nil {
		t.Fatalf("UnmarshalYAML failed: %v", err)
	}
	if config.TTL.Duration() != 5*time.Minute {
		t.Errorf("expected 5m, got %v", config.TTL.Duration())
	}
	if config.Timeout.Milliseconds() != 4000 {
		t.Errorf("expected 4000ms, got %d", config.Timeout.Milliseconds())
	}
}
