package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

// InTestMode reports whether binaries should skip runtime startup. The flag is
// read once per process.
var InTestMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	return on
})
