// Package cupping analyzes the Coffee Quality Institute cupping dataset.
// It loads the raw CSV, cleans and splits it deterministically, and fits
// two supervised models: a random-forest classifier for the quality class
// and an OLS regression with backward elimination for total cup points.
//
// # Quick Start
//
// Run the built-in study from the command line:
//
//	go run ./cmd/cupping run --data arabica_data_cleaned.csv
//
// Or compose the stages directly:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/beanlab/cupping/analysis"
//	)
//
//	func main() {
//	    report, err := analysis.Run(context.Background(), analysis.DefaultStudy())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(report.Metrics())
//	}
//
// # Packages
//
//   - dataset: typed observation table, CSV loader, cleaner, splitter
//   - ensemble: random-forest classifier with OOB error and mtry tuning
//   - linear: OLS regression, inferential summary, backward elimination
//   - preprocessing: one-hot encoding with frozen category sets
//   - metrics: accuracy, confusion matrices, R², AIC, BIC
//   - analysis: declarative study composition
//   - core/model, core/parallel: estimator state and CPU parallelism
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// Every stochastic stage (splitting, bootstrapping, feature subsampling)
// derives from explicit PCG seeds, so a study with a fixed seed reproduces
// its results bit for bit.
package cupping
