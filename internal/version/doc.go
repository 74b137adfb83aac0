// Package version holds build metadata shared by orchestra-server and
// orchestra-ctl. Version, Commit and BuildTime are overridden with ldflags;
// APIVersion tracks the command API and is reported by health probes.
package version
