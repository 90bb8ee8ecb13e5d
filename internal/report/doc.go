// Package report renders analysis runs for people and tools.
//
// Writers:
//   - SimpleWriter: terminal feed with the trace and per-platform findings
//   - JSONWriter: the run as JSON, optionally wrapped with version metadata
//   - MarkdownWriter: a shareable document with tables and a risk chart
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
