package models

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

type IngestionSource string

const (
	SourceText IngestionSource = "text"
	SourceFile IngestionSource = "file"
	SourceDemo IngestionSource = "demo"
)

// IngestionSummary is returned by every upload call. TotalVectors is the
// server's cumulative count, not a per-call figure.
type IngestionSummary struct {
	Status           string `json:"status,omitempty" yaml:"status,omitempty"`
	LogsReceived     int    `json:"logs_received" yaml:"logs_received"`
	EmbeddingsStored int    `json:"embeddings_stored" yaml:"embeddings_stored"`
	TotalVectors     int    `json:"total_vectors" yaml:"total_vectors"`
}

// LogFile is a file handed to the service as-is. Decoding JSON, CSV or plain
// text into log lines happens server-side.
type LogFile struct {
	Filename string
	Data     io.Reader
	Size     int64
}

// OpenLogFile opens path for upload. The caller closes the returned closer.
func OpenLogFile(path string) (*LogFile, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return &LogFile{
		Filename: filepath.Base(path),
		Data:     f,
		Size:     info.Size(),
	}, f, nil
}

// SplitLogLines splits pasted text into log lines, dropping blank ones.
func SplitLogLines(raw string) []string {
	return CleanLogLines(strings.Split(raw, "\n"))
}

// CleanLogLines trims every line and drops the empty ones. It returns nil when
// nothing is left.
func CleanLogLines(lines []string) []string {
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return cleaned
}
