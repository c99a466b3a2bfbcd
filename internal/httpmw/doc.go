// Package httpmw adapts net/http to the request pipeline and carries the
// request-scoped plumbing around it.
//
// Middleware is composed in httpserver.NewHandler, outermost first:
// panic recovery, request ID, client IP resolution, request-scoped
// logger, then Stages, which runs the pipeline stages (rate limiting,
// request timing) around the chi router.
//
// User-supplied data (query strings, headers, user-agent) is kept out of
// the request-scoped logger to avoid PII leaks and log injection.
package httpmw
