// Package scorer folds signals into a confidence value, maps confidence to
// a risk tier and synthesizes a short summary.
//
// Every function in this package is pure: no network, no clock, no shared
// mutable state. The weight table that checkers use to build signals lives
// here too, so tuning happens in one place.
//
// # Risk tiers
//
//   - HIGH: confidence >= 70
//   - MEDIUM: 40 <= confidence < 70
//   - LOW: confidence < 40
package scorer
