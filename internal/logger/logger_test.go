package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Int("population", 50).Msg("generation started")

	output := buf.String()
	if !strings.Contains(output, "generation started") {
		t.Errorf("Expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, `"population":50`) {
		t.Errorf("Expected JSON field in output, got: %s", output)
	}
}

func TestNewConsole(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewConsole(buf)
	log.Warn().Msg("expense clamped")
	if !strings.Contains(buf.String(), "expense clamped") {
		t.Errorf("Expected console output, got: %s", buf.String())
	}
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		level   string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"", zerolog.InfoLevel, false},
		{"loud", zerolog.Disabled, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := Configure(tt.level, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Configure() error = %v, wantErr %v", err, tt.wantErr)
			}
			if log.GetLevel() != tt.want {
				t.Errorf("Configure() level = %s, want %s", log.GetLevel(), tt.want)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"step": "synthesize_transactions",
		"seed": 42,
	})
	log.Info().Msg("step finished")

	output := buf.String()
	if !strings.Contains(output, `"step":"synthesize_transactions"`) {
		t.Errorf("Expected output to contain step field, got: %s", output)
	}
	if !strings.Contains(output, `"seed":42`) {
		t.Errorf("Expected output to contain seed field, got: %s", output)
	}
}
