package provision

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

const (
	resultsFilePermissionsConstant = 0o644
	createResultsErrorTemplate     = "create results file %s: %w"
	writeResultsErrorTemplate      = "write results file %s: %w"
)

// ResultWriter records provisioned devices.
type ResultWriter interface {
	WriteRow(deviceID string, installCode string) error
}

// CSVResultWriter writes headerless `devId,installCode` rows, creating the file on the first row.
type CSVResultWriter struct {
	path   string
	mutex  sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVResultWriter constructs a writer for the CSV path.
func NewCSVResultWriter(path string) *CSVResultWriter {
	return &CSVResultWriter{path: path}
}

// Path reports the CSV location.
func (resultWriter *CSVResultWriter) Path() string {
	return resultWriter.path
}

// WriteRow appends one device row and flushes it to disk.
func (resultWriter *CSVResultWriter) WriteRow(deviceID string, installCode string) error {
	resultWriter.mutex.Lock()
	defer resultWriter.mutex.Unlock()

	if resultWriter.writer == nil {
		file, createError := os.OpenFile(resultWriter.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, resultsFilePermissionsConstant)
		if createError != nil {
			return fmt.Errorf(createResultsErrorTemplate, resultWriter.path, createError)
		}
		resultWriter.file = file
		resultWriter.writer = csv.NewWriter(file)
		resultWriter.writer.UseCRLF = true
	}

	if writeError := resultWriter.writer.Write([]string{deviceID, installCode}); writeError != nil {
		return fmt.Errorf(writeResultsErrorTemplate, resultWriter.path, writeError)
	}
	resultWriter.writer.Flush()
	if flushError := resultWriter.writer.Error(); flushError != nil {
		return fmt.Errorf(writeResultsErrorTemplate, resultWriter.path, flushError)
	}
	return nil
}

// Close closes the CSV file if it was created.
func (resultWriter *CSVResultWriter) Close() error {
	resultWriter.mutex.Lock()
	defer resultWriter.mutex.Unlock()

	if resultWriter.file == nil {
		return nil
	}
	closeError := resultWriter.file.Close()
	resultWriter.file = nil
	resultWriter.writer = nil
	return closeError
}
