package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hupe1980/agentrelay/model"
)

// Result is the outcome of one tool invocation: exactly one Result per input
// call, carrying either Output or Error.
type Result struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Output     any    `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Content renders the result as the message content handed back to the
// requesting agent: the stringified output on success, the remediation
// message on failure.
func (r Result) Content() string {
	if r.Error != "" {
		return r.Error
	}
	switch out := r.Output.(type) {
	case nil:
		return ""
	case string:
		return out
	default:
		raw, err := json.Marshal(out)
		if err != nil {
			return fmt.Sprintf("%v", out)
		}
		return string(raw)
	}
}

// NormalizedCall is the validated, parsed form of a raw model-emitted tool
// call.
type NormalizedCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Invoke validates and executes a single tool call against the registry.
// Every failure mode is recovered into a diagnostic Result so the
// originating agent can self-correct on its next turn; Invoke never panics
// and never returns an error.
//
// Pipeline stages:
//  1. structural validation of the call shape
//  2. tool lookup with "did you mean" suggestions on miss
//  3. JSON argument parsing
//  4. JSON Schema validation of the parsed arguments
//  5. execution with error and panic capture
func Invoke(ctx context.Context, reg *Registry, tc *Context, call model.ToolCall) Result {
	res := Result{ToolCallID: call.ID, Name: call.Function.Name}

	if call.Function.Name == "" {
		res.Error = structuralDiagnostic(reg, call)
		return res
	}

	impl, ok := reg.Get(call.Function.Name)
	if !ok {
		res.Error = unknownToolDiagnostic(reg, call.Function.Name)
		return res
	}

	args, err := parseArguments(call.Function.Arguments)
	if err != nil {
		res.Error = fmt.Sprintf(
			"INVALID ARGUMENTS for tool %q: not valid JSON.\nRaw arguments: %s\nParser error: %v\nUsage example: %s",
			impl.Key(), call.Function.Arguments, err, usageExample(impl),
		)
		return res
	}

	if err := validateArguments(impl.InputSchema(), args); err != nil {
		res.Error = fmt.Sprintf(
			"INVALID ARGUMENTS for tool %q: %v\nUsage example: %s",
			impl.Key(), err, usageExample(impl),
		)
		return res
	}

	output, err := execute(ctx, impl, tc, args)
	if err != nil {
		tc.Logger().Error("tool.execute.error", "tool", impl.Key(), "fc_id", tc.CallID, "error", err.Error())
		res.Error = fmt.Sprintf("EXECUTION ERROR in tool %q: %v", impl.Key(), err)
		return res
	}

	res.Output = output
	return res
}

// InvokeAll runs the pipeline for each call in order, returning exactly one
// result per call.
func InvokeAll(ctx context.Context, reg *Registry, tc *Context, calls []model.ToolCall) []Result {
	results := make([]Result, len(calls))
	for i, call := range calls {
		results[i] = Invoke(ctx, reg, tc, call)
	}
	return results
}

// execute runs the tool with panic capture so one bad tool never aborts the
// worker.
func execute(ctx context.Context, impl Tool, tc *Context, args map[string]any) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	start := time.Now()
	output, err = impl.Execute(ctx, tc, args)
	tc.Logger().Debug("tool.execute", "tool", impl.Key(), "fc_id", tc.CallID,
		"duration_ms", time.Since(start).Milliseconds(), "error", err != nil)
	return output, err
}

// parseArguments decodes the raw arguments string; empty input yields an
// empty argument map.
func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// validateArguments runs the tool's declared JSON Schema against the parsed
// arguments. An empty/absent schema, or an object schema without required
// properties and without typed properties, accepts any input including {}.
func validateArguments(schema map[string]any, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// structuralDiagnostic explains a call missing its function name, listing
// available tools and attempting best-effort name recovery from the call's
// argument values (models occasionally put the tool name in the wrong
// field).
func structuralDiagnostic(reg *Registry, call model.ToolCall) string {
	var b strings.Builder
	b.WriteString("MALFORMED TOOL CALL: the call is missing a function name.\n")
	fmt.Fprintf(&b, "Available tools: %s\n", strings.Join(reg.Keys(), ", "))

	if key := recoverNameFromArguments(reg, call.Function.Arguments); key != "" {
		if impl, ok := reg.Get(key); ok {
			fmt.Fprintf(&b, "Did you mean %q? Corrected call: %s", key, usageExample(impl))
			return b.String()
		}
	}
	if keys := reg.Keys(); len(keys) > 0 {
		if impl, ok := reg.Get(keys[0]); ok {
			fmt.Fprintf(&b, "Example call: %s", usageExample(impl))
		}
	}
	return b.String()
}

// recoverNameFromArguments scans the string values of the (possibly
// malformed) argument object for one that matches, or nearly matches, a
// registered tool key.
func recoverNameFromArguments(reg *Registry, raw string) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return ""
	}
	for _, v := range obj {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, exists := reg.Get(s); exists {
			return s
		}
		if near := nearestKeys(s, reg.Keys()); len(near) > 0 {
			return near[0]
		}
	}
	return ""
}

// unknownToolDiagnostic explains a lookup miss with nearest-match
// suggestions and a usage example.
func unknownToolDiagnostic(reg *Registry, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UNKNOWN TOOL %q.\n", name)
	fmt.Fprintf(&b, "Available tools: %s\n", strings.Join(reg.Keys(), ", "))

	if near := nearestKeys(name, reg.Keys()); len(near) > 0 {
		fmt.Fprintf(&b, "Did you mean %q?", near[0])
		if impl, ok := reg.Get(near[0]); ok {
			fmt.Fprintf(&b, " Usage example: %s", usageExample(impl))
		}
	}
	return b.String()
}
