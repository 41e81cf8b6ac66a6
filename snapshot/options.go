package snapshot

import "log/slog"

type options struct {
	compression Compression
	logger      *slog.Logger
	maxPayload  int
}

// Option configures Write and Read.
type Option func(*options)

// WithCompression selects the compression applied by Write. Read detects the
// compression from the header and ignores this option.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithLogger sets the logger used for debug output. A nil logger discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		o.logger = l
	}
}

// WithMaxPayload bounds the decoded payload size Read accepts.
// Values <= 0 select DefaultMaxPayload.
func WithMaxPayload(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = DefaultMaxPayload
		}
		o.maxPayload = n
	}
}

func applyOptions(opts []Option) options {
	o := options{
		compression: CompressionNone,
		logger:      slog.New(slog.DiscardHandler),
		maxPayload:  DefaultMaxPayload,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
