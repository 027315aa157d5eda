package dataset

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"unicode"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"

	"github.com/beanlab/cupping/pkg/errors"
)

// Load fetches a CSV resource once, from an http(s) URL or a local path,
// and parses it into a Table. This is the single external input boundary of
// the pipeline; nothing is held open after it returns.
func Load(ctx context.Context, source string) (*Table, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, errors.Wrap(err, "Load: building request")
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "Load: fetching %s", source)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Newf("Load: fetching %s: unexpected status %s", source, resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "Load: reading response body")
		}
		return ReadCSV(ctx, bytes.NewReader(body))
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, errors.Wrapf(err, "Load: opening %s", source)
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

// ReadCSV parses comma-separated rows with a header line into a Table.
// Inferred string columns become Categorical with levels frozen in
// first-appearance order; numeric columns become Numeric with NaN for
// missing entries. Header names are normalized to snake_case.
func ReadCSV(ctx context.Context, r io.ReadSeeker) (*Table, error) {
	na := "NA"
	df, err := imports.LoadFromCSV(ctx, r, imports.CSVLoadOptions{
		TrimLeadingSpace: true,
		InferDataTypes:   true,
		NilValue:         &na,
	})
	if err != nil {
		return nil, errors.Wrap(err, "ReadCSV")
	}
	return FromDataFrame(df)
}

// FromDataFrame converts a dataframe into the pipeline's typed Table.
func FromDataFrame(df *dataframe.DataFrame) (*Table, error) {
	n := df.NRows()
	cols := make([]Column, 0, len(df.Series))

	for _, s := range df.Series {
		name := normalizeName(s.Name())
		switch sv := s.(type) {
		case *dataframe.SeriesFloat64:
			vals := make([]float64, n)
			copy(vals, sv.Values)
			cols = append(cols, Column{Name: name, Kind: Numeric, Floats: vals})
		case *dataframe.SeriesInt64:
			vals := make([]float64, n)
			for i := 0; i < n; i++ {
				if v := sv.Value(i); v == nil {
					vals[i] = math.NaN()
				} else {
					vals[i] = float64(v.(int64))
				}
			}
			cols = append(cols, Column{Name: name, Kind: Numeric, Floats: vals})
		case *dataframe.SeriesString:
			labels := make([]string, n)
			for i := 0; i < n; i++ {
				if v := sv.Value(i); v != nil {
					labels[i] = strings.TrimSpace(v.(string))
				}
			}
			cols = append(cols, NewCategoricalColumn(name, labels))
		default:
			// Fall back to the string rendering for exotic series kinds.
			labels := make([]string, n)
			for i := 0; i < n; i++ {
				if s.Value(i) != nil {
					labels[i] = strings.TrimSpace(s.ValueString(i))
				}
			}
			cols = append(cols, NewCategoricalColumn(name, labels))
		}
	}

	return NewTable(cols...)
}

// normalizeName lowercases a header and folds runs of non-alphanumeric
// characters into single underscores, so "Total.Cup.Points" and
// "Total Cup Points" both become "total_cup_points".
func normalizeName(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}
