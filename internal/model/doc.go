// Package model defines the core data structures shared by footprint.
//
// This package contains the following main types:
//   - Signal: one weighted observation about an identity fragment
//   - PlatformResult: the scored finding for one platform
//   - AnalysisInput: the identity fragments supplied by the caller
//   - Run: the confidence-sorted result list and trace of one analysis
//
// Models live in their own package so that the scorer, checkers,
// aggregator, report writers and database can share them without
// import cycles. All types serialize to JSON for reports and history storage.
package model
