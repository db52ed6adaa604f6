package vmlog

import (
	"os"
	"testing"
)

func TestFromEnv(t *testing.T) {
	os.Unsetenv("VIPL_LOG")
	if FromEnv() {
		t.Error("FromEnv() should be false when VIPL_LOG is unset")
	}

	os.Setenv("VIPL_LOG", "debug")
	defer os.Unsetenv("VIPL_LOG")
	if !FromEnv() {
		t.Error("FromEnv() should be true when VIPL_LOG=debug")
	}
}

// TestComponentDoesNotPanic is a smoke test: Configure and Component
// must be safe to call repeatedly (cmd/vipl calls Configure once at
// startup, then internal/vm calls Component at native-registration
// time).
func TestComponentDoesNotPanic(t *testing.T) {
	Configure(true)
	l := Component("vm")
	l.Debug().Str("op", "add").Msg("test trace")

	Configure(false)
	Component("checker").Info().Msg("reconfigured")
}
