// Package database stores completed analysis runs in SQLite so that
// repeated analyses of the same target can be listed and compared.
//
// Runs are grouped by target key, a fingerprint of the normalized input.
// Each row keeps the full run as JSON next to a small risk summary, so
// history listings do not have to decode every stored run.
package database
