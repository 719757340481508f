package cast

import (
	"errors"
	"fmt"
	"strings"
)

// UnmappedColumnError reports every column the reject policy refused, not
// just the first, so one round trip surfaces the whole problem.
type UnmappedColumnError struct {
	Columns []string
}

func (e *UnmappedColumnError) Error() string {
	return fmt.Sprintf("unmapped columns: %s", strings.Join(e.Columns, ", "))
}

// IsUnmappedColumnError reports whether err is an UnmappedColumnError.
func IsUnmappedColumnError(err error) bool {
	var ue *UnmappedColumnError
	return errors.As(err, &ue)
}

// ConfigError reports a malformed cast configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
