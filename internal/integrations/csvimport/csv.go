package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"meteoplan/internal/model"
)

// ErrInvalidRow reports a malformed CSV record.
var ErrInvalidRow = errors.New("invalid csv row")

// Parse reads location,date,humidity records. A first record whose first
// field is "location" is treated as a header. Lines starting with # are
// comments.
func Parse(r io.Reader) ([]model.Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	out := []model.Reading{}
	for first := true; ; first = false {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRow, err)
		}
		if first && strings.EqualFold(strings.TrimSpace(rec[0]), "location") {
			continue
		}
		line, _ := cr.FieldPos(0)
		reading, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRow, line, err)
		}
		out = append(out, reading)
	}
}

func parseRecord(rec []string) (model.Reading, error) {
	loc := strings.TrimSpace(rec[0])
	if loc == "" {
		return model.Reading{}, errors.New("empty location")
	}
	day, err := time.Parse(model.DateLayout, strings.TrimSpace(rec[1]))
	if err != nil {
		return model.Reading{}, fmt.Errorf("date %q: want YYYY-MM-DD", rec[1])
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
	if err != nil {
		return model.Reading{}, fmt.Errorf("humidity %q: %v", rec[2], err)
	}
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return model.Reading{}, fmt.Errorf("humidity %q: not a finite number", rec[2])
	}
	return model.Reading{Location: loc, Date: day, Humidity: h}, nil
}

// File is a ReadingSource backed by a CSV file on disk.
type File struct {
	Path string
}

func (f File) Name() string { return "csv:" + f.Path }

func (f File) Fetch(ctx context.Context) ([]model.Reading, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}
