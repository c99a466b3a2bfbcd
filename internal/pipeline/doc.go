// Package pipeline runs a request through ordered middleware stages around
// a terminal handler.
//
// Each stage has a Before hook that may reject the request and an After
// hook that observes (and may replace) the outcome. Before hooks run in
// registration order and After hooks in reverse, so stages nest
// symmetrically. After runs exactly once for every stage whose Before
// succeeded, including when a later Before fails or the handler panics.
//
// Request-scoped state shared between a stage's Before and After lives in
// Request.Extensions as named, typed fields rather than a dynamic map,
// keyed by the stage instance that wrote them.
package pipeline
