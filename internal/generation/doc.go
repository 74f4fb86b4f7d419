// Package generation defines the boundary between the course pipeline and the
// external text-generation model. A Capability turns raw text and generation
// parameters into an unvalidated Draft; the Gemini implementation lives in
// internal/platform/gemini.
package generation
