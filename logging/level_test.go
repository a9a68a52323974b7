package logging

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"": LevelInfo, "info": LevelInfo, "WARN": LevelWarn, "warning": LevelWarn, "error": LevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("debug")
	assert.Error(t, err)
}

func TestLevelWriterDropsLinesBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(NewLevelWriter(&buf, LevelWarn), "", log.LstdFlags)

	logger.Printf("[info] bayut: Bayut Email: 3")
	logger.Printf("[warn] bayut: email lead=7: publish event: closed")
	logger.Printf("[error] dubizzle: call: fetch: timeout")
	logger.Printf("Starting scheduler with cron: @every 5m")

	out := buf.String()
	assert.NotContains(t, out, "[info]")
	assert.Contains(t, out, "[warn] bayut")
	assert.Contains(t, out, "[error] dubizzle")
	assert.Contains(t, out, "Starting scheduler")
}

func TestLevelWriterUsesFirstTag(t *testing.T) {
	var buf bytes.Buffer
	w := NewLevelWriter(&buf, LevelWarn)

	n, err := w.Write([]byte("[info] owner: message mentions [error] text\n"))
	require.NoError(t, err)
	assert.Equal(t, 44, n)
	assert.Zero(t, buf.Len())
}
