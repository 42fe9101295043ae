package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("MKT_ENV_TEST", "  console ")
	assert.Equal(t, "console", Get("MKT_ENV_TEST", "json"))

	t.Setenv("MKT_ENV_TEST", "   ")
	assert.Equal(t, "json", Get("MKT_ENV_TEST", "json"))
}

func TestFirstHonorsOrder(t *testing.T) {
	t.Setenv("MKT_ENV_A", "")
	t.Setenv("MKT_ENV_B", "web.1")
	t.Setenv("MKT_ENV_C", "host")
	assert.Equal(t, "web.1", First("", "MKT_ENV_A", "MKT_ENV_B", "MKT_ENV_C"))
	assert.Equal(t, "none", First("none"))
}
