package cpp2c

import "fmt"

// UnsupportedError reports a C++ construct the translation engine cannot
// lower to C. Declarations that fail this way are skipped, or abort the
// run when Options.IgnoreUnsupported is false; either way no partial
// output is emitted for them.
type UnsupportedError struct {
	Construct string
	Detail    string
}

func (e *UnsupportedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unsupported: %s", e.Construct)
	}
	return fmt.Sprintf("unsupported: %s: %s", e.Construct, e.Detail)
}

func unsupportedf(construct, format string, args ...interface{}) error {
	return &UnsupportedError{Construct: construct, Detail: fmt.Sprintf(format, args...)}
}
