// Package reqtiming is a pipeline stage that times each request and emits
// one positional log line when it completes:
//
//	<client> [<rfc3339>] <METHOD> <path> - <ms>ms <status>[: <description>[ <detail>]]
//
// Successful requests log at the configured level with the response
// status. Failed requests always log at Error with status 500 and the
// error's description (plus detail when the error carries one).
//
// The bracketed timestamp is taken when the line is emitted, after the
// handler finished, not when the request arrived.
package reqtiming
