// Package logger wraps zap for the instrument binaries:
//   - a global sugared logger on stderr with an atomic level, console or json encoded,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithLevelOverride),
//   - level parsing for configuration and flags,
//   - convenience functions (InfoKV, ErrorKV, etc.) that log through the context.
//
// Long-running components (the arbiter loop, command tasks, transports) take a
// context and log through it, so every line carries its component name.
package logger
