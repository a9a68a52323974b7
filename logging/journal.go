package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"
)

// Journal writes timestamped entries to named side files in one directory
// (raw batches, mapped fields, errors). A nil *Journal discards everything.
type Journal struct {
	mu      sync.Mutex
	dir     string
	maxSize int64
	files   map[string]*RotatingWriter
}

func NewJournal(dir string) *Journal {
	return &Journal{
		dir:     dir,
		maxSize: maxLogSize,
		files:   make(map[string]*RotatingWriter),
	}
}

// Write appends "timestamp - message" to the named file.
func (j *Journal) Write(name, message string) {
	if j == nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	w, ok := j.files[name]
	if !ok {
		var err error
		w, err = OpenRotating(filepath.Join(j.dir, name), j.maxSize)
		if err != nil {
			log.Printf("journal: open %s: %v", name, err)
			return
		}
		j.files[name] = w
	}

	line := fmt.Sprintf("%s - %s\n", time.Now().Format("2006-01-02 15:04:05"), message)
	if _, err := w.Write([]byte(line)); err != nil {
		log.Printf("journal: write %s: %v", name, err)
	}
}

// WriteJSON appends v as indented JSON.
func (j *Journal) WriteJSON(name string, v interface{}) {
	if j == nil {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		j.Write(name, fmt.Sprintf("unencodable value: %v", err))
		return
	}
	j.Write(name, string(data))
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	var firstErr error
	for name, w := range j.files {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(j.files, name)
	}
	return firstErr
}
