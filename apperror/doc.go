// Package apperror defines the application's typed errors.
//
// Every failure in the query pipeline is represented as an *AppError
// carrying an internal diagnostic message, a numeric taxonomy code grouped
// by stage (1xx generation, 2xx validation, 3xx execution, 4xx security,
// 5xx data), and a separate user-safe message. Internal messages may contain
// technical detail and are only ever logged; user messages never contain
// paths, stack frames or host internals.
package apperror
