// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewJSONWritesComponentField(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Format: FormatJSON, Level: slog.LevelInfo, Writer: &buf})
	child := log.Component("timeline")
	child.Info("barrier advanced", "timeline_id", "T1")

	assert.Contains(t, buf.String(), `"component":"timeline"`)
	assert.Contains(t, buf.String(), `"timeline_id":"T1"`)
}

func TestRateLimiterAllowsOncePerInterval(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	base := time.Now()

	assert.True(t, rl.Allow("proxy:h1", base))
	assert.False(t, rl.Allow("proxy:h1", base.Add(10*time.Second)))
	assert.True(t, rl.Allow("proxy:h1", base.Add(2*time.Minute)))
	assert.True(t, rl.Allow("proxy:h2", base.Add(10*time.Second)))
}

func TestNopDiscardsOutput(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Info("should be discarded")
	})
}
