package kkrpc

import "strings"

// BuildPath joins path segments into the dotted method/property path kkrpc
// methods address (SPEC_FULL.md §E.5). It is a thin convenience over
// strings.Join so call sites don't hand-assemble dots:
//
//	kkrpc.BuildPath("math", "grade1", "add") == "math.grade1.add"
func BuildPath(segments ...string) string {
	return strings.Join(segments, ".")
}

// MethodDescriptor describes one callable leaf of an expose Tree: its
// dotted path and what kind of leaf it is. It is the format a future
// code-generation tool would consume to emit typed client stubs; the
// generator itself is out of scope, the descriptor shape is not
// (SPEC_FULL.md §E.5).
type MethodDescriptor struct {
	Path string
	Kind LeafKind
}

// LeafKind classifies an expose Tree leaf for MethodDescriptor purposes.
type LeafKind string

const (
	LeafUnary    LeafKind = "unary"
	LeafStream   LeafKind = "stream"
	LeafProperty LeafKind = "property"
	LeafConstant LeafKind = "constant"
)

// Describe walks an expose Tree and returns a MethodDescriptor for every
// leaf, in depth-first order, dotted-path-addressed.
func Describe(tree Tree) []MethodDescriptor {
	var out []MethodDescriptor
	describeInto(tree, nil, &out)
	return out
}

func describeInto(tree Tree, prefix []string, out *[]MethodDescriptor) {
	for name, leaf := range tree {
		path := BuildPath(append(append([]string{}, prefix...), name)...)
		switch v := leaf.(type) {
		case Tree:
			describeInto(v, append(append([]string{}, prefix...), name), out)
		case UnaryHandler:
			*out = append(*out, MethodDescriptor{Path: path, Kind: LeafUnary})
		case StreamHandler:
			*out = append(*out, MethodDescriptor{Path: path, Kind: LeafStream})
		case *Var:
			*out = append(*out, MethodDescriptor{Path: path, Kind: LeafProperty})
		default:
			*out = append(*out, MethodDescriptor{Path: path, Kind: LeafConstant})
		}
	}
}
