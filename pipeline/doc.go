// Package pipeline orchestrates a question end to end: input screening,
// code generation, validation, sandboxed execution, result classification
// and summarization.
//
// Every stage failure terminates the pipeline with a QueryResult carrying
// a taxonomy error code and a user-safe answer. Generated code is executed
// at most once per question; there is no generate-and-retry loop.
package pipeline
