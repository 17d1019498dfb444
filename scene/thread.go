package scene

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
)

// threadGuard pins a scene to the goroutine that created it. All
// structural mutation and every frame-pipeline pass must come from
// that goroutine; a violation is a programming error and panics
// immediately rather than risking silent corruption of render state.
//
// Foreign goroutines interact with the graph only through the atomic
// transform mirror, which is exempt from this check.
type threadGuard struct {
	owner uint64
}

func newThreadGuard() threadGuard {
	return threadGuard{owner: currentGoroutineID()}
}

func (g *threadGuard) check(op string) {
	if g.owner == 0 {
		return
	}
	if id := currentGoroutineID(); id != g.owner {
		panic(fmt.Sprintf("scene: %s called from goroutine %d, graph is owned by goroutine %d", op, id, g.owner))
	}
}

// currentGoroutineID parses the goroutine header line from the stack
// dump. Slow, but only on the guarded paths, and those are once per
// frame or behind explicit user calls.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Header: "goroutine 123 [running]:"
	line := buf[:n]
	line = bytes.TrimPrefix(line, []byte("goroutine "))
	if i := bytes.IndexByte(line, ' '); i > 0 {
		id, err := strconv.ParseUint(string(line[:i]), 10, 64)
		if err == nil {
			return id
		}
	}
	return 0
}
