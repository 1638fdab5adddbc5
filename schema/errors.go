package schema

import "fmt"

// Error reports an invalid schema declaration. Schema errors are
// construction-time failures: a Registry refusing to build means the
// program's type declarations are wrong, not its data.
type Error struct {
	Type   string
	Reason string
}

// Error returns the error string.
func (e *Error) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("burrow: schema: %s", e.Reason)
	}
	return fmt.Sprintf("burrow: schema: %s: %s", e.Type, e.Reason)
}

func schemaErr(typeName, format string, args ...any) *Error {
	return &Error{Type: typeName, Reason: fmt.Sprintf(format, args...)}
}
