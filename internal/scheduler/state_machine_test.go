package scheduler

import (
	"testing"

	"github.com/jonesrussell/crawlsched/internal/domain"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.ItemStatus
		to      domain.ItemStatus
		wantErr bool
	}{
		// Valid transitions from pending
		{"pending to processing", domain.StatusPending, domain.StatusProcessing, false},

		// Invalid transitions from pending
		{"pending to completed", domain.StatusPending, domain.StatusCompleted, true},
		{"pending to failed", domain.StatusPending, domain.StatusFailed, true},
		{"pending to pending", domain.StatusPending, domain.StatusPending, true},

		// Valid transitions from processing
		{"processing to completed", domain.StatusProcessing, domain.StatusCompleted, false},
		{"processing to pending", domain.StatusProcessing, domain.StatusPending, false},
		{"processing to failed", domain.StatusProcessing, domain.StatusFailed, false},

		// Invalid transitions from processing
		{"processing to processing", domain.StatusProcessing, domain.StatusProcessing, true},

		// Terminal state: completed (no valid transitions out)
		{"completed to pending", domain.StatusCompleted, domain.StatusPending, true},
		{"completed to processing", domain.StatusCompleted, domain.StatusProcessing, true},
		{"completed to failed", domain.StatusCompleted, domain.StatusFailed, true},

		// Terminal state: failed (no valid transitions out)
		{"failed to pending", domain.StatusFailed, domain.StatusPending, true},
		{"failed to processing", domain.StatusFailed, domain.StatusProcessing, true},
		{"failed to completed", domain.StatusFailed, domain.StatusCompleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%v, %v) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}
