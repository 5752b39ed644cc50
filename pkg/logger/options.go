package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug. WithDebug(false) restores Info.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

func WithLevel(level slog.Level) Option {
	return func(c *config) { c.level = level }
}

// WithPretty switches to the charmbracelet/log handler.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		if pretty {
			c.format = formatPretty
		} else if c.format == formatPretty {
			c.format = formatText
		}
	}
}

// WithJSON switches to slog's JSON handler unless pretty output was
// requested.
func WithJSON(json bool) Option {
	return func(c *config) {
		if json && c.format != formatPretty {
			c.format = formatJSON
		} else if !json && c.format == formatJSON {
			c.format = formatText
		}
	}
}

// WithWriter replaces the destination. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters writes every record to each of w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) { c.writers = w }
}

// WithSource adds file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) { c.source = source }
}
