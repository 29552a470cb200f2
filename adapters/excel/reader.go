package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gllvmord/internal"

	"github.com/xuri/excelize/v2"
)

// DataReader reads named tables from an Excel workbook (one sheet per table)
// or from a directory of CSV files (one <table>.csv per table)
type DataReader struct {
	path     string
	fileType string // "xlsx" or "csv"

	mu     sync.Mutex
	book   *excelize.File
	logger *internal.Logger
}

// NewDataReader creates a reader for a workbook or CSV directory
func NewDataReader(path string) *DataReader {
	fileType := "csv"
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		fileType = "xlsx"
	}
	return &DataReader{path: path, fileType: fileType, logger: internal.DefaultLogger}
}

// Open checks the source exists and opens the workbook if there is one
func (r *DataReader) Open() error {
	info, err := os.Stat(r.path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s source not found: %s", strings.ToUpper(r.fileType), r.path)
	}
	if err != nil {
		return err
	}

	if r.fileType == "csv" {
		if !info.IsDir() {
			return fmt.Errorf("CSV source must be a directory: %s", r.path)
		}
		return nil
	}

	startTime := time.Now()
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to open Excel file: %w", err)
	}
	r.logger.Debug("[DataReader] Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)
	r.book = f
	return nil
}

// Close releases the workbook
func (r *DataReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.book == nil {
		return nil
	}
	err := r.book.Close()
	r.book = nil
	return err
}

// Has reports whether a table exists
func (r *DataReader) Has(name string) bool {
	if r.fileType == "csv" {
		_, err := os.Stat(r.csvPath(name))
		return err == nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.book == nil {
		return false
	}
	idx, err := r.book.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// ReadTable reads one table. Workbook access is serialized; CSV files are
// read independently.
func (r *DataReader) ReadTable(name string) (*Table, error) {
	var rows [][]string
	var err error

	readStart := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV(name)
	case "xlsx":
		rows, err = r.readSheet(name)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", name, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("table %s must have a header row and at least one data row", name)
	}
	return processRows(name, rows), nil
}

func (r *DataReader) csvPath(name string) string {
	return filepath.Join(r.path, name+".csv")
}

func (r *DataReader) readCSV(name string) ([][]string, error) {
	file, err := os.Open(r.csvPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file %s: %w", name, err)
	}
	return rows, nil
}

func (r *DataReader) readSheet(name string) ([][]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.book == nil {
		return nil, fmt.Errorf("workbook %s is not open", r.path)
	}
	rows, err := r.book.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	return rows, nil
}

// processRows trims cells and drops fully empty rows
func processRows(name string, rows [][]string) *Table {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(headers))
		empty := true
		for j := 0; j < len(headers) && j < len(row); j++ {
			cells[j] = strings.TrimSpace(row[j])
			if cells[j] != "" {
				empty = false
			}
		}
		if !empty {
			data = append(data, cells)
		}
	}

	return &Table{Name: name, Headers: headers, Rows: data}
}
