package scpi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// Handler executes one matched command. Returning a Code other than
// CodeNoError queues it; any other error queues a generic command
// error.
type Handler func(ctx context.Context, c *Context) error

type command struct {
	pattern string
	nodes   []patternNode
	query   bool
	handler Handler
}

type patternNode struct {
	long     string
	short    string
	optional bool
}

func (n patternNode) matches(token string) bool {
	upper := strings.ToUpper(token)
	return upper == n.short || upper == n.long
}

// Engine parses command lines and dispatches them against the
// registered instrument tree. One engine serves all transports.
type Engine struct {
	commands []command
	errors   *ErrorQueue
	status   *Status
}

// NewEngine builds an engine with the whole instrument tree bound to
// the given device.
func NewEngine(device Device) *Engine {
	e := &Engine{
		errors: NewErrorQueue(),
		status: NewStatus(),
	}
	e.registerCommon(device)
	e.registerInstrument(device)
	return e
}

func (e *Engine) Errors() *ErrorQueue { return e.errors }
func (e *Engine) Status() *Status     { return e.status }

func (e *Engine) register(pattern string, handler Handler) {
	query := strings.HasSuffix(pattern, "?")
	header := strings.TrimSuffix(pattern, "?")
	e.commands = append(e.commands, command{
		pattern: pattern,
		nodes:   compilePattern(header),
		query:   query,
		handler: handler,
	})
}

// PushError queues a SCPI error and latches its status bit.
func (e *Engine) PushError(code Code) {
	e.errors.Push(code)
	e.status.NoteError(code)
}

// Execute runs one input line, which may carry several commands
// separated by semicolons. The returned string joins the query
// responses; it is empty when no command produced output.
func (e *Engine) Execute(ctx context.Context, line string) string {
	var replies []string
	for _, raw := range strings.Split(line, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if reply, ok := e.executeOne(ctx, raw); ok {
			replies = append(replies, reply)
		}
	}
	return strings.Join(replies, ";")
}

func (e *Engine) executeOne(ctx context.Context, input string) (string, bool) {
	header, args := splitHeader(input)
	query := strings.HasSuffix(header, "?")
	header = strings.TrimSuffix(header, "?")
	tokens := headerTokens(header)

	for i := range e.commands {
		cmd := &e.commands[i]
		if cmd.query != query || !matchNodes(cmd.nodes, tokens) {
			continue
		}
		c := &Context{engine: e, args: args}
		if err := cmd.handler(ctx, c); err != nil {
			if code, ok := err.(Code); ok {
				e.PushError(code)
			} else {
				klog.V(3).InfoS("Scpi command failed", "command", cmd.pattern, "error", err)
				e.PushError(CodeCommandError)
			}
			return "", false
		}
		if len(c.replies) == 0 {
			return "", false
		}
		return strings.Join(c.replies, ","), true
	}

	klog.V(3).InfoS("Scpi header not recognized", "input", input)
	e.PushError(CodeUndefinedHeader)
	return "", false
}

func splitHeader(input string) (string, []string) {
	header := input
	var args []string
	if i := strings.IndexAny(input, " \t"); i >= 0 {
		header = input[:i]
		rest := strings.TrimSpace(input[i+1:])
		if rest != "" {
			for _, arg := range strings.Split(rest, ",") {
				args = append(args, strings.TrimSpace(arg))
			}
		}
	}
	return header, args
}

func headerTokens(header string) []string {
	header = strings.TrimPrefix(header, ":")
	if header == "" {
		return nil
	}
	return strings.Split(header, ":")
}

// compilePattern turns a header pattern like
// [SOURce]:VOLTage[:LEVel][:IMMediate] into its node list. Uppercase
// letters form the short mnemonic, the full word the long one, and
// bracketed nodes may be omitted by the client.
func compilePattern(pattern string) []patternNode {
	var nodes []patternNode
	rest := pattern
	for rest != "" {
		optional := false
		if rest[0] == ':' {
			rest = rest[1:]
			continue
		}
		if rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			inner := strings.TrimPrefix(rest[1:end], ":")
			nodes = append(nodes, newPatternNode(inner, true))
			rest = rest[end+1:]
			continue
		}
		end := strings.IndexAny(rest, ":[")
		if end < 0 {
			end = len(rest)
		}
		nodes = append(nodes, newPatternNode(rest[:end], optional))
		rest = rest[end:]
	}
	return nodes
}

func newPatternNode(word string, optional bool) patternNode {
	short := strings.Builder{}
	for _, r := range word {
		if r >= 'a' && r <= 'z' {
			break
		}
		short.WriteRune(r)
	}
	return patternNode{
		long:     strings.ToUpper(word),
		short:    short.String(),
		optional: optional,
	}
}

func matchNodes(nodes []patternNode, tokens []string) bool {
	if len(nodes) == 0 {
		return len(tokens) == 0
	}
	node := nodes[0]
	if len(tokens) > 0 && node.matches(tokens[0]) && matchNodes(nodes[1:], tokens[1:]) {
		return true
	}
	if node.optional {
		return matchNodes(nodes[1:], tokens)
	}
	return false
}

// Context carries one command invocation: its arguments in, its reply
// fields out.
type Context struct {
	engine  *Engine
	args    []string
	replies []string
}

func (c *Context) Reply(s string) {
	c.replies = append(c.replies, s)
}

func (c *Context) ReplyInt(v int) {
	c.Reply(strconv.Itoa(v))
}

func (c *Context) ReplyFloat(v float64) {
	c.Reply(strconv.FormatFloat(v, 'g', -1, 64))
}

func (c *Context) ReplyBool(v bool) {
	if v {
		c.Reply("1")
	} else {
		c.Reply("0")
	}
}

func (c *Context) arg(index int) (string, error) {
	if index >= len(c.args) {
		return "", CodeMissingParameter
	}
	return c.args[index], nil
}

func (c *Context) ParamInt(index int) (int, error) {
	arg, err := c.arg(index)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(arg)
	if err != nil {
		return 0, CodeDataTypeError
	}
	return value, nil
}

// ParamNumber parses a decimal argument with an optional unit suffix.
// The suffix must be empty or one of the allowed units.
func (c *Context) ParamNumber(index int, units ...string) (float64, error) {
	arg, err := c.arg(index)
	if err != nil {
		return 0, err
	}
	split := len(arg)
	for split > 0 {
		ch := arg[split-1]
		if ch >= '0' && ch <= '9' || ch == '.' {
			break
		}
		split--
	}
	number, suffix := strings.TrimSpace(arg[:split]), strings.TrimSpace(arg[split:])
	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, CodeDataTypeError
	}
	if suffix == "" {
		return value, nil
	}
	for _, unit := range units {
		if strings.EqualFold(suffix, unit) {
			return value, nil
		}
	}
	return 0, CodeDataTypeError
}

func (c *Context) ParamBool(index int) (bool, error) {
	arg, err := c.arg(index)
	if err != nil {
		return false, err
	}
	switch strings.ToUpper(arg) {
	case "1", "ON":
		return true, nil
	case "0", "OFF":
		return false, nil
	default:
		return false, CodeDataTypeError
	}
}

// ParamChoice accepts either a choice name or its numeric value.
func (c *Context) ParamChoice(index int, choices []string) (int, error) {
	arg, err := c.arg(index)
	if err != nil {
		return 0, err
	}
	if value, err := strconv.Atoi(arg); err == nil {
		if value < 0 || value >= len(choices) {
			return 0, CodeIllegalParameterValue
		}
		return value, nil
	}
	for i, choice := range choices {
		if strings.EqualFold(arg, choice) {
			return i, nil
		}
	}
	return 0, CodeIllegalParameterValue
}

func formatIdentity(manufacturer, model string, serial uint32, firmware string) string {
	return fmt.Sprintf("%s,%s,%08d,%s", manufacturer, model, serial, firmware)
}
