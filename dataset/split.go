package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/beanlab/cupping/pkg/errors"
)

// Split partitions a table into disjoint training and test tables. The
// training table receives round(n*p) rows chosen by a uniform random
// permutation drawn from a PCG source seeded with seed, so the partition is
// identical for identical (table, p, seed).
func Split(t *Table, p float64, seed uint64) (train, test *Table, err error) {
	if p <= 0 || p >= 1 {
		return nil, nil, errors.NewConfigError("Split", "p", "must be in (0,1)", p)
	}

	n := t.NumRows()
	if n == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "Split")
	}

	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(n)

	trainSize := int(math.Round(float64(n) * p))
	trainIdx := perm[:trainSize]
	testIdx := perm[trainSize:]

	train, err = t.Rows(trainIdx)
	if err != nil {
		return nil, nil, err
	}
	test, err = t.Rows(testIdx)
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
