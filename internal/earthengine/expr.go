package earthengine

import (
	"strconv"
)

// Value is one node of an Earth Engine expression graph. Exactly one field is set.
type Value struct {
	Constant   any                 `json:"constantValue,omitempty"`
	Invocation *Invocation         `json:"functionInvocationValue,omitempty"`
	Array      *ArrayValue         `json:"arrayValue,omitempty"`
	Dictionary *DictionaryValue    `json:"dictionaryValue,omitempty"`
	Function   *FunctionDefinition `json:"functionDefinitionValue,omitempty"`
	Argument   string              `json:"argumentReference,omitempty"`
	Reference  string              `json:"valueReference,omitempty"`
}

type Invocation struct {
	FunctionName string            `json:"functionName"`
	Arguments    map[string]*Value `json:"arguments,omitempty"`
}

type ArrayValue struct {
	Values []*Value `json:"values"`
}

type DictionaryValue struct {
	Values map[string]*Value `json:"values"`
}

// FunctionDefinition is a lambda; Body is a key of the enclosing Expression.
type FunctionDefinition struct {
	ArgumentNames []string `json:"argumentNames"`
	Body          string   `json:"body"`
}

// Expression is the serialized graph sent to the API.
type Expression struct {
	Result string            `json:"result"`
	Values map[string]*Value `json:"values"`
}

// Args names the arguments of an invocation.
type Args map[string]*Value

func Const(v any) *Value {
	return &Value{Constant: v}
}

func Call(name string, args Args) *Value {
	return &Value{Invocation: &Invocation{FunctionName: name, Arguments: args}}
}

func Array(values ...*Value) *Value {
	if values == nil {
		values = []*Value{}
	}
	return &Value{Array: &ArrayValue{Values: values}}
}

func Dict(values map[string]*Value) *Value {
	return &Value{Dictionary: &DictionaryValue{Values: values}}
}

func Arg(name string) *Value {
	return &Value{Argument: name}
}

// Graph collects the named values of an expression. Function bodies must live
// at the top level of the graph, so lambdas are registered here.
type Graph struct {
	values map[string]*Value
}

func NewGraph() *Graph {
	return &Graph{values: map[string]*Value{}}
}

func (g *Graph) add(v *Value) string {
	key := strconv.Itoa(len(g.values))
	g.values[key] = v
	return key
}

// Lambda registers body and returns a function definition taking args.
func (g *Graph) Lambda(body *Value, args ...string) *Value {
	return &Value{Function: &FunctionDefinition{ArgumentNames: args, Body: g.add(body)}}
}

// Expression finalizes the graph with result as its output.
func (g *Graph) Expression(result *Value) Expression {
	return Expression{Result: g.add(result), Values: g.values}
}
