// Package dataset provides the in-memory tabular data model.
//
// A Frame is an immutable columnar table loaded from CSV. Every operation
// (selection, filtering, sorting, grouping, aggregation) returns a new Frame
// or Series, so a single loaded frame can be shared read-only by concurrent
// queries. The Manager loads the dataset once, caches a schema description
// for generation context, and hot-reloads when the file changes.
package dataset
