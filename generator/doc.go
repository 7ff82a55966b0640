// Package generator produces analysis code and conversational answers
// through a language model.
//
// The package defines small interfaces (CodeGenerator, ResponseGenerator,
// HealthChecker) so that the pipeline never depends on a concrete model
// service, plus an implementation backed by Ollama's OpenAI-compatible
// chat API.
package generator
