package kkrpc

import (
	"log/slog"
	"time"
)

// channelConfig collects the options applied by NewChannel before the
// channel's read loop starts.
type channelConfig struct {
	expose      Tree
	validators  ValidatorTree
	middlewares []Middleware
	timeout     time.Duration
	version     serializationPreference
	logger      *slog.Logger
	transfers   *TransferRegistry
}

// serializationPreference is the channel's preferred outbound format when
// the transport allows a choice (spec.md §6.3).
type serializationPreference string

const (
	// PreferSuperJSON is the default: richer round-tripping of dates,
	// big integers, byte buffers, maps, and sets.
	PreferSuperJSON serializationPreference = "superjson"
	// PreferJSON sends the plain format, for peers that don't implement
	// the superjson tagging scheme.
	PreferJSON serializationPreference = "json"
)

func defaultChannelConfig() channelConfig {
	return channelConfig{
		expose: Tree{},
		// No timeout by default (spec.md §4.2.3, §6.3): a pending entry
		// waits indefinitely for a response, a local ctx cancellation, or
		// channel destroy. WithTimeout opts a channel into one.
		timeout:   0,
		version:   PreferSuperJSON,
		logger:    slog.Default(),
		transfers: NewTransferRegistry(),
	}
}

// Option configures a Channel at construction time.
type Option func(*channelConfig)

// WithExpose sets the local API surface made callable by the peer.
func WithExpose(t Tree) Option {
	return func(c *channelConfig) { c.expose = t }
}

// WithValidators attaches the input/output schema validators checked before
// middleware runs (spec.md §4.4.2).
func WithValidators(v ValidatorTree) Option {
	return func(c *channelConfig) { c.validators = v }
}

// WithMiddleware appends onion-ordered interceptors around every inbound
// "request" dispatch only — not construct, get, set, or callback (spec.md
// §4.4.1). Later calls append; order of calls is call order, outermost
// first.
func WithMiddleware(mws ...Middleware) Option {
	return func(c *channelConfig) { c.middlewares = append(c.middlewares, mws...) }
}

// WithTimeout overrides the default pending-request timeout (spec.md §4.2.3).
// A zero duration disables the timeout entirely.
func WithTimeout(d time.Duration) Option {
	return func(c *channelConfig) { c.timeout = d }
}

// WithSerialization sets the channel's preferred outbound format.
func WithSerialization(pref serializationPreference) Option {
	return func(c *channelConfig) { c.version = pref }
}

// WithLogger sets the structured logger used for read-loop diagnostics and
// dropped-frame warnings; defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *channelConfig) { c.logger = log }
}

// WithTransferRegistry sets the registry of custom TransferHandlers
// consulted when encoding and decoding transferred values.
func WithTransferRegistry(r *TransferRegistry) Option {
	return func(c *channelConfig) { c.transfers = r }
}
