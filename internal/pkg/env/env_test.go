package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	t.Setenv("SALVA_TEST_KEY", "from-os")
	Env = map[string]string{"SALVA_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, "from-file", GetEnv("SALVA_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("SALVA_MISSING_KEY", "def"))
}

func TestTypedGetters(t *testing.T) {
	Env = map[string]string{
		"LOCK_TTL":  "45s",
		"BAD_TTL":   "soon",
		"LIMIT":     "25",
		"BAD_LIMIT": "many",
	}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 45*time.Second, GetEnvDuration("LOCK_TTL", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("BAD_TTL", time.Second))
	assert.Equal(t, 25, GetEnvInt("LIMIT", 20))
	assert.Equal(t, 20, GetEnvInt("BAD_LIMIT", 20))
}

func TestIsDev(t *testing.T) {
	Env = map[string]string{"APP_ENV": "dev"}
	t.Cleanup(func() { Env = nil })
	assert.True(t, IsDev())

	Env = map[string]string{"APP_ENV": "prod"}
	assert.False(t, IsDev())
}
