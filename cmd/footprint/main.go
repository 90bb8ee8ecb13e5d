// Package main provides the entry point for the footprint CLI.
//
// footprint correlates identity fragments (username, email, phone number,
// real name) across public platforms and reports a per-platform confidence
// and risk level.
//
// Usage:
//
//	footprint scan --username octocat
//	footprint scan --email user@example.com --phone 9876543210 --country-code +91
//	footprint history --list-targets
//
// See --help for all available options.
package main

func main() {
	Execute()
}
