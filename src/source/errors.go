package source

import "fmt"

// ErrorKind classifies a fatal compile-time error per the error taxonomy:
// TypeCheck errors surfaced from validation, ReferenceCount errors from
// rc.Annotate, NestedVariant from a Variant payload that is itself a
// Variant, and Build from the target-IR builder (defined in target/ir).
type ErrorKind int

const (
	KindTypeCheck ErrorKind = iota
	KindReferenceCount
	KindNestedVariant
)

func (k ErrorKind) String() string {
	switch k {
	case KindTypeCheck:
		return "TypeCheck"
	case KindReferenceCount:
		return "ReferenceCount"
	case KindNestedVariant:
		return "NestedVariant"
	default:
		return "Unknown"
	}
}

// CompileError reports a fatal, non-recoverable error found while
// validating or annotating a module, naming the definition it was found in.
type CompileError struct {
	Kind       ErrorKind
	Definition string
	Message    string
}

func (e *CompileError) Error() string {
	if e.Definition == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: in definition %q: %s", e.Kind, e.Definition, e.Message)
}

func errf(kind ErrorKind, def, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Definition: def, Message: fmt.Sprintf(format, args...)}
}
