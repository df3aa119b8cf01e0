// internal/domain/warehouse/entity_test.go
package warehouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCartonConfig_ActiveAt(t *testing.T) {
	effective := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

	openEnded := CartonConfig{EffectiveDate: effective}
	windowed := CartonConfig{EffectiveDate: effective, EndDate: &end}

	tests := []struct {
		name string
		cfg  *CartonConfig
		at   time.Time
		want bool
	}{
		{"before effective date", &openEnded, effective.AddDate(0, 0, -1), false},
		{"on effective date", &openEnded, effective, true},
		{"open-ended stays active", &openEnded, effective.AddDate(5, 0, 0), true},
		{"inside window", &windowed, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), true},
		{"on end date", &windowed, end, true},
		{"after end date", &windowed, end.AddDate(0, 0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ActiveAt(tt.at))
		})
	}
}
