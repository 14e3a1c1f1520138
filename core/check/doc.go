// Package check runs an API analyzer for one module and turns its outcome
// into a pass or a failure listing every unaccepted break.
//
// The analyzer is external to this package. Runner merges the configuration
// fragments, serializes them with revconfig, hands the result together with
// the old and new API locations to the Analyzer, and reports failure as an
// AnalysisFailedError.
package check
