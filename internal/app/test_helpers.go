package app

import (
	"os"
	"testing"

	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/testutil"
)

// SetupAppTest creates an app logging at debug level into a buffer. Set
// FLOWGRID_TEST_LOGS=true to print the buffer when the test finishes.
func SetupAppTest(t *testing.T, cfg config.Config) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp := NewApp(logBuffer, cfg)

	t.Cleanup(func() {
		if os.Getenv("FLOWGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
