// Package gemini implements generation.Capability on top of Google's Gemini
// API.
//
// The capability renders a text/template prompt from the course title, raw
// text, difficulty and requested languages, asks the model for JSON matching
// a fixed response schema, and decodes it into a generation.Draft. The draft
// is not validated here; the assembler owns that.
//
// Transport and quota errors from the API are retried with exponential
// backoff and jitter. Blocked content and unparseable responses are returned
// at once. The caller's context bounds the whole call, retries included.
package gemini
