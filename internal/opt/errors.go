package opt

// ErrInvalidConfig matches every *ConfigError under errors.Is.
var ErrInvalidConfig = &ConfigError{}

// ConfigError reports an engine or operator configuration that cannot be built.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration"
	}
	return "invalid configuration: " + e.Field + " " + e.Reason
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}
