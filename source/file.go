package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/segmentio/parquet-go"
	"github.com/tidwall/gjson"
)

// Parquet reads every row of the file at path.
func Parquet(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("source: stat %s: %w", path, err)
	}
	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("source: open parquet %s: %w", path, err)
	}

	reader := parquet.NewReader(pqFile)
	defer reader.Close()

	rows := make([]Record, 0, pqFile.NumRows())
	for {
		row := make(Record)
		if err := reader.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("source: read row %d of %s: %w", len(rows), path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MaxLine bounds a single JSON line.
const MaxLine = 4 << 20

// JSONLines reads one JSON object per line. Blank lines are skipped.
// Numbers decode as float64, nested objects as map[string]any.
func JSONLines(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), MaxLine)

	var rows []Record
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		if !gjson.ValidBytes(b) {
			return nil, fmt.Errorf("source: line %d: invalid JSON", line)
		}
		res := gjson.ParseBytes(b)
		if !res.IsObject() {
			return nil, fmt.Errorf("source: line %d: want an object, got %s", line, res.Type)
		}
		rows = append(rows, res.Value().(map[string]any))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("source: line %d: %w", line+1, err)
	}
	return rows, nil
}
