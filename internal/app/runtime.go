package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

const testModeEnv = "PORTAL_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	enabled, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	testModeFlag.Store(enabled)
}

// InTestMode reports whether binaries should skip connecting to Redis,
// Postgres and the API.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode re-reads PORTAL_TEST_MODE after the environment changed.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}
