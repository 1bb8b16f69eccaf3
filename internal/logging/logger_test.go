package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sujalbistaa/crown/internal/logging"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logging.LevelDebug, logging.ParseLevel("DEBUG", logging.LevelInfo))
	assert.Equal(t, logging.LevelWarn, logging.ParseLevel(" warn ", logging.LevelInfo))
	assert.Equal(t, logging.LevelError, logging.ParseLevel("nonsense", logging.LevelError))
}

func TestGetLogger_TagsNameAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logging.Configure(logging.Config{Level: "warn", JSON: true, OutputHandle: &buf})
	t.Cleanup(func() { logging.Configure(logging.Config{Output: "discard"}) })

	log := logging.GetLogger("forum.store")
	log.Info("hidden")
	log.Warn("shown", logging.Group("post", "id", 7))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"logger":"forum.store"`)
	assert.Contains(t, out, `"post":{"id":7}`)
}
