// Package model defines the data shared by every stage of a photobox session.
//
// This package contains the following main types:
//   - Target: one (URL, viewport size) pair, plus the enumerator that expands
//     the configuration into the ordered target list
//   - CaptureOutcome and DiffOutcome: per-target results reported to the
//     completion tracker
//   - DiffJob: the paths of the two-stage diff pipeline
//   - ReportModel: the grouped view handed to the template renderer
//
// The models live in their own package so that config, pipeline and report
// can share them without import cycles.
package model
