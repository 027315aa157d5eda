package dataset

import (
	"log/slog"

	"github.com/beanlab/cupping/pkg/errors"
	"github.com/beanlab/cupping/pkg/log"
)

// CleanConfig describes the cleaning stage: which columns survive, which of
// them are categorical, and upper bounds applied to numeric columns.
type CleanConfig struct {
	// Keep is the column whitelist. A name missing from the input table is
	// a SchemaError.
	Keep []string `yaml:"keep"`

	// Categorical names the kept columns that must be categorical after
	// cleaning. Naming a numeric column here is a ColumnTypeError.
	Categorical []string `yaml:"categorical"`

	// NumericCaps maps a numeric column name to an exclusive upper bound;
	// rows at or above the bound are dropped as out-of-range outliers.
	NumericCaps map[string]float64 `yaml:"numeric_caps"`
}

// Clean applies the cleaning stage: restrict to the whitelist, drop rows
// with a missing value in any kept column, drop rows violating a numeric
// cap, and refreeze categorical level sets to the labels that remain.
// The input table is not modified.
func Clean(t *Table, cfg CleanConfig) (*Table, error) {
	logger := log.With("dataset")

	out, err := t.Select(cfg.Keep)
	if err != nil {
		return nil, err
	}

	for _, name := range cfg.Categorical {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Kind != Categorical {
			return nil, errors.NewColumnTypeError("Clean", name, "categorical", col.Kind.String())
		}
	}

	n := out.NumRows()
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}

	// Missing values in any kept column disqualify the row.
	for _, name := range cfg.Keep {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if col.IsMissing(i) {
				keep[i] = false
			}
		}
	}

	// Out-of-range outliers.
	for name, cap := range cfg.NumericCaps {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Kind != Numeric {
			return nil, errors.NewColumnTypeError("Clean", name, "numeric", col.Kind.String())
		}
		for i := 0; i < n; i++ {
			if keep[i] && col.Floats[i] >= cap {
				keep[i] = false
			}
		}
	}

	out, err = out.FilterRows(keep)
	if err != nil {
		return nil, err
	}
	out, err = out.Refreeze()
	if err != nil {
		return nil, err
	}

	logger.Debug("cleaned table",
		slog.Int(log.SamplesKey, out.NumRows()),
		slog.Int(log.FeaturesKey, out.NumCols()),
		slog.Int(log.DroppedRowsKey, n-out.NumRows()))
	return out, nil
}
