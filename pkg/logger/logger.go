package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Printf returns a printf-style sink that forwards library log lines into
// base at the given level, tagged with component. Libraries such as chromedp
// accept this shape for their log hooks.
func Printf(base *slog.Logger, component string, level slog.Level) func(string, ...any) {
	if base == nil {
		return func(string, ...any) {}
	}
	scoped := base.With("component", component)
	return func(format string, args ...any) {
		msg := strings.TrimSpace(fmt.Sprintf(format, args...))
		if msg == "" {
			return
		}
		scoped.Log(context.Background(), level, msg)
	}
}
