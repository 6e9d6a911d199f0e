package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/aluiziolira/go-scrape-consultations/models"
)

// ReadJSONL decodes the rows of a JSON Lines mirror in file order.
func ReadJSONL(r io.Reader) ([]*models.Row, error) {
	dec := json.NewDecoder(r)
	var rows []*models.Row
	for {
		var row models.Row
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return rows, nil
			}
			return nil, fmt.Errorf("decode jsonl row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, &row)
	}
}

// RestoreCSV rebuilds csvPath from the JSONL mirror at jsonlPath and returns
// the number of rows written. An existing CSV is replaced only once the new
// file is complete.
func RestoreCSV(jsonlPath, csvPath string) (int, error) {
	in, err := os.Open(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("open jsonl file: %w", err)
	}
	rows, err := ReadJSONL(in)
	in.Close()
	if err != nil {
		return 0, err
	}

	tmp := csvPath + ".restore"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("remove stale %s: %w", tmp, err)
	}

	writer, err := NewCSVWriter(tmp)
	if err != nil {
		return 0, err
	}
	if err := writer.Write(rows); err != nil {
		writer.Close()
		os.Remove(tmp)
		return 0, err
	}
	if err := writer.Close(); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, csvPath); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("replace csv file: %w", err)
	}
	return len(rows), nil
}
