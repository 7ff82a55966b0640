package policy

// Default resource limits.
const (
	DefaultMaxInputLength = 1000
	DefaultTimeoutSec     = 10
	DefaultMaxMemoryMB    = 512
)

// defaultAllowedOperations is the advisory allowlist: the dataset and chart
// host API plus generic helpers generated analysis code is expected to use.
// Calls outside this list log a warning; only the denylist blocks.
var defaultAllowedOperations = []string{
	// frame operations
	"groupby", "agg", "col", "select", "filter", "query",
	"head", "tail", "sample", "sort_values", "sort_index",
	"drop_duplicates", "nlargest", "nsmallest", "rename",
	"isin", "between", "dropna", "fillna",
	// statistics
	"mean", "sum", "count", "std", "variance", "min", "max",
	"median", "quantile", "describe", "corr",
	// analysis
	"value_counts", "unique", "nunique", "duplicated",
	// shape and conversion
	"shape", "columns", "index", "values", "size", "length",
	"tolist", "to_list", "copy", "round", "get",
	// chart host API
	"bar", "line", "scatter", "pie", "histogram", "box",
	"title", "add_trace", "update_layout",
	// generic JS surface
	"abs", "floor", "ceil", "sqrt", "pow", "log", "exp",
	"toFixed", "toString", "concat", "slice", "join", "split",
	"includes", "indexOf", "push", "keys", "entries",
	"toUpperCase", "toLowerCase", "trim", "replace",
	"stringify", "parse", "String", "Number", "Boolean", "Array",
	"parseInt", "parseFloat", "isNaN", "Math", "JSON",
}

// defaultBlockedOperations is the hard denylist: identifiers whose presence
// anywhere in generated code rejects the whole script. Covers dynamic code
// evaluation, prototype/reflection escapes, host module loading, process and
// file access, and timers. Legacy names from other scripting surfaces
// (exec, system, open, pickle) stay blocked so that mistranslated
// generations are rejected rather than misparsed.
var defaultBlockedOperations = []string{
	// dynamic evaluation
	"eval", "Function", "AsyncFunction", "GeneratorFunction", "compile",
	// module loading
	"require", "import", "importScripts", "__import__",
	// prototype and reflection escapes
	"constructor", "prototype", "__proto__", "__defineGetter__",
	"__defineSetter__", "__lookupGetter__", "__lookupSetter__",
	"getPrototypeOf", "setPrototypeOf", "defineProperty",
	"globalThis", "Reflect", "Proxy", "Symbol",
	"getattr", "setattr", "delattr", "vars", "globals", "locals",
	// process and environment
	"process", "exit", "kill", "abort", "env", "exec", "execSync",
	"spawn", "spawnSync", "fork", "system", "popen", "subprocess",
	// filesystem
	"open", "readFile", "readFileSync", "writeFile", "writeFileSync",
	"unlink", "rmdir", "mkdir", "chmod", "createReadStream",
	"createWriteStream",
	// network
	"fetch", "XMLHttpRequest", "WebSocket", "connect", "listen",
	"send", "recv", "socket",
	// timers and scheduling
	"setTimeout", "setInterval", "setImmediate", "queueMicrotask",
	// serialization with code-execution risk
	"pickle", "marshal", "serialize", "deserialize",
}

// defaultBlockedModules denies host module roots outright, whether imported
// or referenced as a dotted path. Mixed JS and legacy names, same reasoning
// as the operation denylist.
var defaultBlockedModules = []string{
	"os", "fs", "path", "child_process", "process", "vm", "module",
	"worker_threads", "cluster", "net", "http", "https", "http2",
	"dns", "tls", "dgram", "crypto", "buffer", "v8", "repl",
	"sys", "subprocess", "shutil", "socket", "urllib", "requests",
	"pickle", "marshal", "ctypes", "importlib", "builtins",
	"multiprocessing", "threading", "asyncio", "tempfile", "pathlib",
	"io", "zipfile", "tarfile", "gzip", "sqlite3", "inspect",
}

// defaultAllowedVariables are temporary names generated code commonly binds.
// Names outside this list are logged as warnings so operators can review
// naming drift, never rejected.
var defaultAllowedVariables = []string{
	"df", "data", "result", "output", "filtered", "grouped", "merged",
	"temp", "subset", "stats", "summary", "counts", "totals", "means",
	"averages", "sums", "distribution", "metrics", "categories",
	"fig", "figure", "chart", "plot", "trace", "traces", "layout",
	"labels", "values", "colors", "title", "name", "text",
	"series", "column", "columns", "rows", "row", "col", "idx", "index",
	"i", "j", "k", "n", "x", "y", "z", "key", "value", "item", "entry",
	"avg", "total", "top", "bottom", "best", "worst", "score", "scores",
	"avg_score", "top_students", "students", "courses", "levels",
	"genders", "level", "course", "gender", "numeric_cols",
}
