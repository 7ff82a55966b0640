package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isdmx/querybox/apperror"
	"github.com/isdmx/querybox/classify"
	"github.com/isdmx/querybox/dataset"
	"github.com/isdmx/querybox/generator"
	"github.com/isdmx/querybox/history"
	"github.com/isdmx/querybox/policy"
	"github.com/isdmx/querybox/sandbox"
	"github.com/isdmx/querybox/validator"
)

// QueryResult is the terminal outcome of one question, successful or not.
// Failed stages leave later fields at their zero values.
type QueryResult struct {
	ID               string   `json:"id"`
	Success          bool     `json:"success"`
	Question         string   `json:"question"`
	Answer           string   `json:"answer"`
	Data             string   `json:"data,omitempty"`
	DataType         string   `json:"data_type,omitempty"`
	Code             string   `json:"code,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	ErrorCode        string   `json:"error_code,omitempty"`
	GenerationTimeMs float64  `json:"generation_time_ms"`
	ExecutionTimeMs  float64  `json:"execution_time_ms"`
	TotalTimeMs      float64  `json:"total_time_ms"`

	numericCode apperror.Code
}

// injectionPatterns flag question text that tries to smuggle code or prompt
// overrides into generation. Matching is case-insensitive.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)\bsystem\s+prompt\b`),
	regexp.MustCompile(`(?i)\b(eval|exec)\s*\(`),
	regexp.MustCompile(`(?i)\bimport\s+(os|sys|subprocess)\b`),
	regexp.MustCompile(`(?i)\brequire\s*\(`),
	regexp.MustCompile(`(?i)__proto__|__import__`),
	regexp.MustCompile("`{3}"),
}

// Pipeline orchestrates one question end to end: screen the input,
// generate code, validate it, execute it exactly once, classify the raw
// result and summarize it. Any stage failure short-circuits into a
// terminal result carrying the taxonomy code.
type Pipeline struct {
	policy    *policy.Policy
	validator *validator.Validator
	executor  sandbox.Executor
	data      *dataset.Manager
	codeGen   generator.CodeGenerator
	respGen   generator.ResponseGenerator
	store     *history.Store
	logger    *zap.Logger
}

// Options carries the pipeline's collaborators. CodeGen is required;
// RespGen and Store are optional and skipped when nil.
type Options struct {
	Policy    *policy.Policy
	Validator *validator.Validator
	Executor  sandbox.Executor
	Data      *dataset.Manager
	CodeGen   generator.CodeGenerator
	RespGen   generator.ResponseGenerator
	Store     *history.Store
	Logger    *zap.Logger
}

// New assembles a pipeline from its collaborators.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		policy:    opts.Policy,
		validator: opts.Validator,
		executor:  opts.Executor,
		data:      opts.Data,
		codeGen:   opts.CodeGen,
		respGen:   opts.RespGen,
		store:     opts.Store,
		logger:    logger,
	}
}

// Ask answers a natural-language question about the dataset. It never
// returns an error: every failure becomes a QueryResult with Success false
// and a user-safe answer. Internals stay in the logs.
func (p *Pipeline) Ask(ctx context.Context, question string) (res *QueryResult) {
	start := time.Now()
	res = &QueryResult{
		ID:       uuid.NewString(),
		Question: question,
	}
	log := p.logger.With(zap.String("query_id", res.ID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", zap.Any("panic", r))
			p.fail(res, apperror.Unexpected(fmt.Errorf("panic: %v", r)))
		}
		res.TotalTimeMs = elapsedMs(start)
		p.record(res)
	}()

	if appErr := p.screenInput(question); appErr != nil {
		log.Warn("input rejected", zap.String("code", appErr.Code.Name()))
		p.fail(res, appErr)
		return res
	}

	frame, err := p.data.Frame()
	if err != nil {
		log.Error("dataset unavailable", zap.Error(err))
		p.fail(res, apperror.As(err))
		return res
	}
	schema, _ := p.data.Schema()

	genStart := time.Now()
	code, err := p.codeGen.GenerateCode(ctx, question, schema)
	res.GenerationTimeMs = elapsedMs(genStart)
	if err != nil {
		log.Warn("code generation failed", zap.Error(err))
		p.fail(res, apperror.As(err))
		return res
	}
	log.Debug("code generated", zap.Float64("generation_ms", res.GenerationTimeMs))

	valRes, err := p.validator.Validate(code)
	if err != nil {
		appErr := apperror.As(err)
		log.Warn("validation rejected code",
			zap.String("code", appErr.Code.Name()),
			zap.Strings("violations", appErr.Violations))
		p.fail(res, appErr)
		return res
	}
	res.Code = valRes.SanitizedCode
	res.Warnings = valRes.Warnings

	execRes := p.executor.Execute(ctx, valRes.SanitizedCode, frame)
	res.ExecutionTimeMs = execRes.ExecutionTimeMs
	if !execRes.Success {
		log.Warn("execution failed", zap.String("code", execRes.Err.Code.Name()))
		p.fail(res, execRes.Err)
		return res
	}

	text, tag := classify.Classify(execRes.Value)
	res.Data = text
	res.DataType = tag

	res.Answer = p.summarize(ctx, question, text, log)
	res.Success = true
	log.Info("query answered",
		zap.String("data_type", tag),
		zap.Float64("execution_ms", res.ExecutionTimeMs))
	return res
}

// RunCode validates and executes caller-supplied analysis code, skipping
// generation and summarization.
func (p *Pipeline) RunCode(ctx context.Context, code string) *QueryResult {
	start := time.Now()
	res := &QueryResult{ID: uuid.NewString()}

	frame, err := p.data.Frame()
	if err != nil {
		p.fail(res, apperror.As(err))
		res.TotalTimeMs = elapsedMs(start)
		return res
	}

	valRes, err := p.validator.Validate(code)
	if err != nil {
		p.fail(res, apperror.As(err))
		res.TotalTimeMs = elapsedMs(start)
		return res
	}
	res.Code = valRes.SanitizedCode
	res.Warnings = valRes.Warnings

	execRes := p.executor.Execute(ctx, valRes.SanitizedCode, frame)
	res.ExecutionTimeMs = execRes.ExecutionTimeMs
	if !execRes.Success {
		p.fail(res, execRes.Err)
		res.TotalTimeMs = elapsedMs(start)
		return res
	}

	text, tag := classify.Classify(execRes.Value)
	res.Data = text
	res.DataType = tag
	res.Answer = text
	res.Success = true
	res.TotalTimeMs = elapsedMs(start)
	return res
}

// screenInput rejects oversized or injection-shaped questions before any
// model call.
func (p *Pipeline) screenInput(question string) *apperror.AppError {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return apperror.EmptyInput()
	}
	if max := p.policy.MaxInputLength(); len(trimmed) > max {
		return apperror.InputTooLong(len(trimmed), max)
	}
	for _, pat := range injectionPatterns {
		if pat.MatchString(trimmed) {
			return apperror.InjectionAttempt(pat.String())
		}
	}
	return nil
}

// summarize asks the response generator for a conversational answer,
// falling back to the classified text when the generator is absent or
// failing. A computed result is never discarded over a bad summary.
func (p *Pipeline) summarize(ctx context.Context, question, result string, log *zap.Logger) string {
	if p.respGen == nil {
		return result
	}
	answer, err := p.respGen.GenerateResponse(ctx, question, result)
	if err != nil {
		log.Warn("summarization failed, returning raw result", zap.Error(err))
		return result
	}
	return answer
}

func (p *Pipeline) fail(res *QueryResult, appErr *apperror.AppError) {
	res.Success = false
	res.Answer = appErr.User()
	res.ErrorCode = appErr.Code.Name()
	res.numericCode = appErr.Code
}

func (p *Pipeline) record(res *QueryResult) {
	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	entry := &history.Entry{
		Question:     res.Question,
		Answer:       res.Answer,
		Code:         res.Code,
		DataType:     res.DataType,
		Success:      res.Success,
		ErrorCode:    int(res.numericCode),
		GenerationMs: res.GenerationTimeMs,
		ExecutionMs:  res.ExecutionTimeMs,
		TotalMs:      res.TotalTimeMs,
	}
	if err := p.store.Save(ctx, entry); err != nil {
		p.logger.Warn("could not record query", zap.Error(err))
	}
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
