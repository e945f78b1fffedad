// Package reader reads raw feedback records from line-oriented JSON files.
// Each line holds either a single record object or an array of records.
package reader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openihd/feedmart/internal/model"
	"github.com/openihd/feedmart/internal/pipeline"
	"github.com/openihd/feedmart/internal/support/exception"
	"github.com/openihd/feedmart/internal/support/logger"
)

const moduleName = "reader"

// FeedbackFileReader implements pipeline.ItemReader for feedback files.
// It is not safe for concurrent use; callers serialize access.
type FeedbackFileReader struct {
	path    string
	file    *os.File
	scanner *bufio.Reader
	// pending holds records parsed from an array line not yet handed out.
	pending   []*model.RawFeedbackRecord
	lineNo    int
	exhausted bool
}

var _ pipeline.ItemReader[*model.RawFeedbackRecord] = (*FeedbackFileReader)(nil)

// NewFeedbackFileReader creates a reader for the given file path.
func NewFeedbackFileReader(path string) *FeedbackFileReader {
	return &FeedbackFileReader{path: path}
}

// Open opens the input file.
func (r *FeedbackFileReader) Open(ctx context.Context) error {
	file, err := os.Open(r.path)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to open input file "+r.path, err, false, false)
	}
	r.file = file
	r.scanner = bufio.NewReader(file)
	r.pending = nil
	r.lineNo = 0
	r.exhausted = false
	logger.Infof("Opened feedback file: %s", r.path)
	return nil
}

// Read returns the next record. A line that parses as neither a record
// object nor an array of records yields a skippable error; the reader
// stays positioned on the following line.
func (r *FeedbackFileReader) Read(ctx context.Context) (*model.RawFeedbackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.scanner == nil {
		return nil, exception.NewBatchError(moduleName, "reader is not open", nil, false, false)
	}

	for {
		if len(r.pending) > 0 {
			record := r.pending[0]
			r.pending = r.pending[1:]
			return record, nil
		}
		if r.exhausted {
			return nil, pipeline.ErrNoMoreItems
		}

		line, err := r.scanner.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, exception.NewBatchError(moduleName, "failed to read line from input file", err, false, true)
		}
		if err == io.EOF {
			r.exhausted = true
		}
		r.lineNo++

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// A line is either one record object or an array of records.
		var record model.RawFeedbackRecord
		if jsonErr := json.Unmarshal([]byte(line), &record); jsonErr == nil {
			return &record, nil
		}

		var records []*model.RawFeedbackRecord
		if jsonErr := json.Unmarshal([]byte(line), &records); jsonErr == nil {
			if len(records) == 0 {
				continue
			}
			r.pending = records
			continue
		}

		return nil, exception.NewBatchError(moduleName,
			fmt.Sprintf("malformed JSON on line %d", r.lineNo), nil, true, false)
	}
}

// Close closes the input file.
func (r *FeedbackFileReader) Close(ctx context.Context) error {
	r.scanner = nil
	r.pending = nil
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to close input file", err, false, false)
	}
	return nil
}
