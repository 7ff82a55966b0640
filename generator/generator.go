package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// CodeGenerator produces analysis code for a natural-language question
// against a known schema.
type CodeGenerator interface {
	GenerateCode(ctx context.Context, question, schema string) (string, error)
}

// ResponseGenerator turns a computed result back into a conversational
// answer.
type ResponseGenerator interface {
	GenerateResponse(ctx context.Context, question, result string) (string, error)
}

// HealthChecker reports whether the backing model service is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

const codeSystemPrompt = `You are a data analysis assistant. You write short JavaScript snippets that answer questions about a table.

The table is available as the variable data (alias df). Supported operations:
- data.head(n), data.tail(n), data.sort_values(col, ascending), data.filter(col, op, value)
- data.nlargest(n, col), data.nsmallest(n, col), data.describe(), data.corr(a, b)
- data['col'] gives a column with .mean(), .sum(), .min(), .max(), .std(), .median(), .count(), .unique(), .value_counts()
- data.groupby(col)['other'].mean() (also .sum(), .count(), .min(), .max(), .std(), .median())
- chart.bar(series, title), chart.line(...), chart.scatter(...), chart.pie(...) build figures

Rules:
- No import or require statements. No function definitions, arrow functions or classes.
- No loops over rows; use the operations above.
- The last expression is the answer. Alternatively assign to result.
- Reply with only the code, in a single fenced block.`

// BuildCodePrompt renders the user prompt for code generation.
func BuildCodePrompt(question, schema string) string {
	var b strings.Builder
	b.WriteString("Dataset schema:\n")
	b.WriteString(schema)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nWrite the JavaScript snippet that answers the question.")
	return b.String()
}

const responseSystemPrompt = `You are a data analysis assistant. Given a user's question and the computed result, write a short, friendly answer in plain language. Mention concrete numbers from the result. Do not mention code or how the result was computed.`

// BuildResponsePrompt renders the user prompt for answer summarization.
func BuildResponsePrompt(question, result string) string {
	return fmt.Sprintf("Question: %s\n\nComputed result:\n%s\n\nAnswer the question.", question, result)
}

var fencedBlock = regexp.MustCompile("(?s)```(?:javascript|js)?\\s*\n(.*?)```")

// ExtractCode pulls the code out of a model reply. Fenced blocks win; a
// reply with no fence is assumed to be bare code.
func ExtractCode(reply string) (string, error) {
	if m := fencedBlock.FindStringSubmatch(reply); m != nil {
		code := strings.TrimSpace(m[1])
		if code == "" {
			return "", fmt.Errorf("fenced block in model reply is empty")
		}
		return code, nil
	}
	code := strings.TrimSpace(reply)
	if code == "" {
		return "", fmt.Errorf("model reply is empty")
	}
	return code, nil
}
