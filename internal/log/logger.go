package log

import "log/slog"

// Logger is a slog.Logger that reports every record under one component
// of the bill pipeline (bills, newbill, storage, worker...).
type Logger struct {
	*slog.Logger
	// base carries the attributes without the component, so retagging
	// never stacks two component keys.
	base      *slog.Logger
	component string
}

// Wrap tags base with component. A nil base uses slog.Default().
func Wrap(base *slog.Logger, component string) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// For returns a plain *slog.Logger tagged with component, for packages
// whose constructors take one.
func For(base *slog.Logger, component string) *slog.Logger {
	return Wrap(base, component).Logger
}

// With returns a logger carrying args in addition to its component.
func (l *Logger) With(args ...any) *Logger {
	return Wrap(l.base.With(args...), l.component)
}

// WithComponent returns the same logger reporting as component.
func (l *Logger) WithComponent(component string) *Logger {
	return Wrap(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}
