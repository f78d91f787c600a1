// Package llm talks to generative text APIs on behalf of the diagram
// generation stage.
//
// A Provider sends one prompt and returns the raw text answer. Client wraps
// a Provider with rate limiting, retries on rate-limit responses and a
// per-call timeout, and implements md2diagram.Generator.
package llm
