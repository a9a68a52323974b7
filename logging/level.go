package logging

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

var levelTags = []struct {
	tag   []byte
	level Level
}{
	{[]byte("[info] "), LevelInfo},
	{[]byte("[warn] "), LevelWarn},
	{[]byte("[error] "), LevelError},
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// LevelWriter drops "[level] source: msg" lines below min. Lines without a
// level tag always pass.
type LevelWriter struct {
	w   io.Writer
	min Level
}

func NewLevelWriter(w io.Writer, min Level) *LevelWriter {
	return &LevelWriter{w: w, min: min}
}

func (lw *LevelWriter) Write(p []byte) (int, error) {
	if lineLevel(p) < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

// lineLevel returns the level of the first tag in p. The log prefix comes
// before the tag, so the earliest match is the one the caller wrote.
func lineLevel(p []byte) Level {
	level, at := LevelError, -1
	for _, t := range levelTags {
		if i := bytes.Index(p, t.tag); i >= 0 && (at < 0 || i < at) {
			level, at = t.level, i
		}
	}
	return level
}
