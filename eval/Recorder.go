package eval

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Recorder receives scalar evaluation metrics keyed by fixed names,
// suitable for a time-series metrics sink.
type Recorder interface {
	Record(key string, value float64)
}

// LogRecorder writes metrics through the standard logger.
type LogRecorder struct {
	logger *log.Logger
}

// NewLogRecorder returns a Recorder that writes to standard error.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{logger: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *LogRecorder) Record(key string, value float64) {
	l.logger.Printf("%v: %v", key, value)
}

// JSONLRecorder appends one JSON object per metric to a file, creating
// the file and its directory on first use.
type JSONLRecorder struct {
	path string
}

// NewJSONLRecorder returns a Recorder that appends to the given file.
func NewJSONLRecorder(path string) *JSONLRecorder {
	return &JSONLRecorder{path: path}
}

func (j *JSONLRecorder) Record(key string, value float64) {
	entry := map[string]interface{}{"key": key, "value": value}
	bs, err := json.Marshal(entry)
	if err != nil {
		log.Printf("jsonlRecorder: could not marshal %v: %v", key, err)
		return
	}

	if dir := filepath.Dir(j.path); dir != "." {
		os.MkdirAll(dir, os.ModePerm)
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("jsonlRecorder: could not open %v: %v", j.path, err)
		return
	}
	defer f.Close()
	fmt.Fprintln(f, string(bs))
}

// SaveHistory writes the evaluation history as a JSON array, to be
// read back at the end of training.
func (e *Evaluator) SaveHistory(path string) error {
	bs, err := json.MarshalIndent(e.history, "", "  ")
	if err != nil {
		return fmt.Errorf("saveHistory: %v", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		os.MkdirAll(dir, os.ModePerm)
	}
	if err := os.WriteFile(path, bs, 0644); err != nil {
		return fmt.Errorf("saveHistory: %v", err)
	}
	return nil
}
