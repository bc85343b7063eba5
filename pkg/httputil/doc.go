// Package httputil provides the HTTP transport for registry clients.
//
// # Overview
//
// This package provides infrastructure shared by registry API access:
//
//   - [Client]: JSON GET requests with optional basic auth
//   - [Retry]: Automatic retry with exponential backoff
//
// # Status mapping
//
// Responses map onto the application error taxonomy: 404 becomes a
// NOT_FOUND error, 429 a retryable RATE_LIMITED error, 5xx a retryable
// NETWORK_ERROR, and transport failures (timeouts, connection resets)
// retryable NETWORK_ERRORs as well.
//
// # Retry
//
// [Retry] re-executes an operation for errors wrapped in
// [RetryableError]; all other errors return immediately. The delay
// doubles after each failed attempt:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.GetJSON(ctx, url, &out)
//	})
package httputil
