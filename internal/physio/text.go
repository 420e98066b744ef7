package physio

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// maxTextLine bounds a single line of a plain-text signal file.
const maxTextLine = 16 << 20

// readText parses a whitespace/line delimited numeric file into a 1-D
// array. Text after "#" is a comment and blank lines are skipped. A file
// with one value per line reads as a column; a single line with many
// values reads as a row; anything else is 2-D and rejected.
func readText(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		values []float64
		rows   int
		width  int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTextLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if rows > 0 && len(fields) != width {
			return nil, fmt.Errorf("%s:%d: expected %d columns, got %d", path, lineNo, width, len(fields))
		}
		width = len(fields)
		rows++
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if rows > 1 && width > 1 {
		return nil, &Error{
			Code:    ErrCodeNotOneDimensional,
			Message: fmt.Sprintf("plain-text data must be one-dimensional, got %d rows x %d columns", rows, width),
			Path:    path,
		}
	}
	if values == nil {
		values = []float64{}
	}
	return values, nil
}
