// Package transport builds the HTTP client used for live lookups.
//
// Three routes are supported:
//   - direct connections (the default)
//   - an external SOCKS5 proxy, via golang.org/x/net/proxy
//   - an embedded Tor daemon started with github.com/nao1215/tornago,
//     which is then used as a SOCKS5 proxy
//
// Every client injects the configured User-Agent and extra headers into
// outgoing requests.
package transport
