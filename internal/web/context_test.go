package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithClient(t *testing.T) {
	details := map[string]any{"format": "csv"}
	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	out := withClient(details, ua)

	assert.Equal(t, "csv", out["format"])
	assert.Contains(t, out["browser"], "Chrome")
	assert.Contains(t, out["os"], "Windows")
	assert.Equal(t, false, out["mobile"])
	assert.NotContains(t, details, "browser", "input map is not modified")
}
