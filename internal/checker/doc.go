// Package checker implements the source checkers that turn identity
// fragments into per-platform outcomes.
//
// Three checkers exist:
//   - UsernameChecker: a live GitHub lookup plus a simulated platform roster
//   - EmailChecker: domain liveness, the Gravatar avatar registry and a
//     simulated breach lookup
//   - PhoneChecker: deep links and search vectors, no network
//
// Checkers never return errors. A source that cannot be queried produces an
// Outcome with Kind OutcomeFailed and a Reason, and the aggregator decides
// how that is rendered.
//
// Randomness and time are injected (WithRandomSource, WithClock), so every
// checker is reproducible under test.
package checker
