package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnv(t *testing.T) {
	t.Setenv("ENV_TEST_SET", "value")
	assert.Equal(t, "value", Env("ENV_TEST_SET", "fallback"))
	assert.Equal(t, "fallback", Env("ENV_TEST_UNSET", "fallback"))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("ENV_TEST_INT", "42")
	t.Setenv("ENV_TEST_INT_BAD", "not-a-number")
	t.Setenv("ENV_TEST_INT_NEG", "-3")

	assert.Equal(t, 42, EnvInt("ENV_TEST_INT", 7))
	assert.Equal(t, 7, EnvInt("ENV_TEST_INT_BAD", 7))
	assert.Equal(t, 7, EnvInt("ENV_TEST_INT_NEG", 7))
	assert.Equal(t, 7, EnvInt("ENV_TEST_INT_UNSET", 7))
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("ENV_TEST_DUR", "90s")
	t.Setenv("ENV_TEST_DUR_BAD", "soon")

	assert.Equal(t, 90*time.Second, EnvDuration("ENV_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, EnvDuration("ENV_TEST_DUR_BAD", time.Minute))
	assert.Equal(t, time.Minute, EnvDuration("ENV_TEST_DUR_UNSET", time.Minute))
}
