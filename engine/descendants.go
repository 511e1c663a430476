package engine

import (
	"fmt"
	"syscall"

	"github.com/a2y-d5l/cmdassert/internal/obslog"
	gopsprocess "github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// children returns the direct child PIDs of pid, via one gopsutil hop.
func children(pid int) ([]int32, error) {
	proc, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("lookup pid %d: %w", pid, err)
	}
	kids, err := proc.Children()
	if err != nil {
		// gopsutil reports "no children" as an error on some platforms;
		// treat it as an empty result rather than a hard failure.
		return nil, nil
	}
	pids := make([]int32, len(kids))
	for i, k := range kids {
		pids[i] = k.Pid
	}
	return pids, nil
}

// descendants returns the full transitive closure of pid's children.
func descendants(pid int) ([]int32, error) {
	var all []int32
	frontier := []int32{int32(pid)}
	seen := map[int32]bool{int32(pid): true}

	for len(frontier) > 0 {
		var next []int32
		for _, p := range frontier {
			kids, err := children(int(p))
			if err != nil {
				continue
			}
			for _, k := range kids {
				if seen[k] {
					continue
				}
				seen[k] = true
				all = append(all, k)
				next = append(next, k)
			}
		}
		frontier = next
	}
	return all, nil
}

// killDescendants walks pid's descendant tree and destroys each, best
// effort: failures are logged and never escalated to the caller, per the
// descendant-kill contract ("withDescendants is a request, not a
// guarantee"). If the descendant walk itself comes back empty (e.g.
// /proc is unavailable in a sandboxed environment), it falls back to
// signalling the whole process group pid belongs to.
func killDescendants(pid int, forcibly bool) {
	sig := syscall.SIGTERM
	if forcibly {
		sig = syscall.SIGKILL
	}

	kids, err := descendants(pid)
	if err != nil {
		obslog.Warnf(logrus.Fields{"pid": pid}, "descendant walk failed: %v", err)
	}

	if len(kids) == 0 {
		if gerr := unix.Kill(-pid, sig); gerr != nil && gerr != unix.ESRCH {
			obslog.Warnf(logrus.Fields{"pid": pid}, "process-group signal fallback failed: %v", gerr)
		}
		return
	}

	for _, k := range kids {
		if err := unix.Kill(int(k), sig); err != nil && err != unix.ESRCH {
			obslog.Warnf(logrus.Fields{"pid": pid, "descendant": k}, "kill descendant failed: %v", err)
		}
	}
}
