// Package testing is imported for its side effect: it puts the process in test
// mode before any test or init in the importing package runs.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// forcedEnv is applied unconditionally; defaultEnv only when unset.
var (
	forcedEnv  = map[string]string{"INKROOM_TEST_MODE": "1"}
	defaultEnv = map[string]string{"LOG_LEVEL": "error"}
)

var once sync.Once

func prepareEnv() {
	once.Do(func() {
		for key, value := range forcedEnv {
			_ = os.Setenv(key, value)
		}
		for key, value := range defaultEnv {
			if _, ok := os.LookupEnv(key); !ok {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	prepareEnv()
}

// TestMain prepares the environment and runs m.
func TestMain(m *stdtesting.M) {
	prepareEnv()
	os.Exit(m.Run())
}
