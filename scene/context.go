package scene

import "sync/atomic"

// Logger is the subset of the engine logger the graph core needs.
// Satisfied by arbor.DefaultLogger; a nil-safe no-op is used otherwise.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Infof(format string, args ...any)  {}
func (nopLogger) Warnf(format string, args ...any)  {}
func (nopLogger) Errorf(format string, args ...any) {}

// Context carries the process-wide counters and debug switches for one
// graph instance. Node ids, light ids and hierarchy ids are allocated
// here rather than from package globals so that independent graphs
// (tests included) never interfere.
type Context struct {
	// DisableCulling treats every node as visible. Debug switch.
	DisableCulling bool

	// DebugSortOrder logs every pushed sort key with a per-frame index.
	DebugSortOrder bool

	log Logger

	nodeIDs  atomic.Uint64
	lightIDs atomic.Uint32

	// Reset at the start of every sort-key pass.
	sortDebugIndex int
}

func NewContext() *Context {
	return &Context{log: nopLogger{}}
}

// SetLogger installs a diagnostics sink. Passing nil restores the
// no-op logger.
func (ctx *Context) SetLogger(log Logger) {
	if log == nil {
		ctx.log = nopLogger{}
		return
	}
	ctx.log = log
}

func (ctx *Context) Logger() Logger {
	return ctx.log
}

func (ctx *Context) nextNodeID() uint64 {
	return ctx.nodeIDs.Add(1)
}

func (ctx *Context) nextLightID() uint32 {
	return ctx.lightIDs.Add(1)
}
