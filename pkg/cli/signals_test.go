package cli

import (
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx := SetupSignalHandler()

	select {
	case <-ctx.Done():
		t.Error("context should not be canceled without a signal")
	case <-time.After(20 * time.Millisecond):
	}
}
