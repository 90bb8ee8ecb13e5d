// Package log provides slog loggers that keep secrets and personal data
// out of log output.
//
// Investigating an identity means handling the very data that should not
// end up in logs: email addresses, phone numbers and real names, plus any
// API tokens passed through request headers. SecureHandler wraps another
// slog.Handler and rewrites attributes before they reach it:
//   - secrets (Authorization headers, tokens, passwords) are replaced with
//     MaskValue
//   - personal data under well-known keys (email, phone, full_name) is
//     partially masked, e.g. "t***@gmail.com" or "***10"
//   - email addresses embedded in any string value or in the message are
//     partially masked as well
//
// Masking applies at every level, including debug.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//	logger.Debug("gravatar lookup", "email", "test@gmail.com") // email=t***@gmail.com
package log
