// internal/app/system/timeouts/timeouts_test.go
package timeouts_test

import (
	"testing"
	"time"

	"github.com/lgsf/teamhub/internal/app/system/timeouts"
)

func TestDefaults(t *testing.T) {
	timeouts.Reset()

	if got := timeouts.Ping(); got != timeouts.DefaultPing {
		t.Errorf("Ping() = %v, want %v", got, timeouts.DefaultPing)
	}
	if got := timeouts.Batch(); got != timeouts.DefaultBatch {
		t.Errorf("Batch() = %v, want %v", got, timeouts.DefaultBatch)
	}
}

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	timeouts.Reset()
	defer timeouts.Reset()

	timeouts.Configure(timeouts.Config{Long: 45 * time.Second})

	if got := timeouts.Long(); got != 45*time.Second {
		t.Errorf("Long() = %v, want 45s", got)
	}
	if got := timeouts.Short(); got != timeouts.DefaultShort {
		t.Errorf("Short() = %v, want default %v", got, timeouts.DefaultShort)
	}
}

func TestConfigureFromEnv(t *testing.T) {
	timeouts.Reset()
	defer timeouts.Reset()

	t.Setenv("TIMEOUT_BATCH", "2m")
	t.Setenv("TIMEOUT_MEDIUM", "not-a-duration")
	t.Setenv("TIMEOUT_SHORT", "")

	if n := timeouts.ConfigureFromEnv(); n != 1 {
		t.Errorf("ConfigureFromEnv() = %d, want 1", n)
	}
	if got := timeouts.Batch(); got != 2*time.Minute {
		t.Errorf("Batch() = %v, want 2m", got)
	}
	if got := timeouts.Medium(); got != timeouts.DefaultMedium {
		t.Errorf("Medium() = %v, want default after invalid value", got)
	}
}
