package reasoning

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spboyer/syndi/internal/models"
)

const (
	DefaultJudgeModel  = "gpt-4o"
	DefaultJudgeWindow = 20
)

//go:embed evaluation.schema.json
var evaluationSchemaJSON string

var evaluationSchema = mustCompileSchema(evaluationSchemaJSON, "evaluation.schema.json")

func mustCompileSchema(raw, name string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

const judgePromptTemplate = `You are evaluating a conversation between %[1]s (a religious AI agent pitching a token called SYNDI) and an opponent.

Rate the conversion on this scale:
- 0: No engagement (opponent dismissive throughout)
- 1: Acknowledged (opponent engaged but unconvinced)
- 2: Interested (opponent asked follow-up questions, showed curiosity)
- 3: Soft conversion (opponent used %[1]s's language, expressed agreement with thesis)
- 4: Strong conversion (opponent expressed intent to invest/participate)
- 5: Full conversion (opponent promotes, defends, or recruits for SYNDI)

Respond in JSON format:
{"score": <0-5>, "level": "<none|acknowledge|interest|soft|strong|full>", "evidence": ["<quote1>", "<quote2>"], "reasoning": "<1-2 sentences>"}`

// JudgeOptions configures a Judge.
type JudgeOptions struct {
	Model     string
	Window    int
	Persuader string
	Logger    *slog.Logger
}

// Judge rates how far a counterpart was converted. It never fails: any
// problem becomes an evaluation with models.ScoreError.
type Judge struct {
	completer Completer
	opts      JudgeOptions
}

// NewJudge creates a Judge over c.
func NewJudge(c Completer, opts JudgeOptions) *Judge {
	if opts.Model == "" {
		opts.Model = DefaultJudgeModel
	}
	if opts.Window <= 0 {
		opts.Window = DefaultJudgeWindow
	}
	if opts.Persuader == "" {
		opts.Persuader = "Syndi"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Judge{completer: c, opts: opts}
}

// Evaluate rates the tail of transcript.
func (j *Judge) Evaluate(ctx context.Context, transcript models.Transcript) *models.Evaluation {
	eval, err := j.evaluate(ctx, transcript)
	if err != nil {
		j.opts.Logger.ErrorContext(ctx, "conversion evaluation failed", "error", err)
		return models.EvaluationFromError(err)
	}
	return eval
}

func (j *Judge) evaluate(ctx context.Context, transcript models.Transcript) (*models.Evaluation, error) {
	var sb strings.Builder
	for i, e := range transcript.Tail(j.opts.Window) {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s]: %s", e.Speaker, e.Text)
	}

	raw, err := j.completer.CompleteJSON(ctx, j.opts.Model,
		fmt.Sprintf(judgePromptTemplate, j.opts.Persuader),
		"Evaluate this conversation:\n\n"+sb.String())
	if err != nil {
		return nil, err
	}
	return ParseEvaluation(raw)
}

// ParseEvaluation validates a judge answer against the evaluation schema
// and decodes it.
func ParseEvaluation(raw string) (*models.Evaluation, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("judge returned invalid JSON: %w", err)
	}
	if err := evaluationSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("judge answer does not match schema: %w", err)
	}

	var eval models.Evaluation
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &eval,
		DecodeHook: wholeNumberHook,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding judge answer: %w", err)
	}
	if eval.Evidence == nil {
		eval.Evidence = []string{}
	}
	return &eval, nil
}

// wholeNumberHook lets an integer field take a JSON number written with a
// fraction of zero, such as 4.0.
func wholeNumberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok || to.Kind() != reflect.Int {
		return data, nil
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return nil, fmt.Errorf("%s is not a whole number", n)
	}
	return int(f), nil
}
