package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"kelly zero", func(c *Config) { c.KellyFraction = 0 }, true},
		{"risk above one", func(c *Config) { c.MaxRiskPerTradePct = 2 }, true},
		{"min confidence one", func(c *Config) { c.MinConfidence = 1 }, true},
		{"no sectors", func(c *Config) { c.MaxPositionsPerSector = 0 }, true},
		{"atr period", func(c *Config) { c.ATRPeriod = 0 }, true},
		{"bad resume", func(c *Config) { c.ResumeAt = "ten" }, true},
		{"empty resume", func(c *Config) { c.ResumeAt = "" }, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
