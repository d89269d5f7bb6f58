package luabridge

import (
	"github.com/lua-embed/luabridge/internal/instance"
	"github.com/lua-embed/luabridge/internal/luaerr"
	"github.com/lua-embed/luabridge/internal/value"
)

// CreateSnapshot stores the caller-supplied globals in inst's snapshot
// manager under id (generated if empty); it does not read inst's Lua
// global table itself. It fails with RuntimeError if snapshots were not enabled via
// WithSnapshots (spec.md §4.8/§6).
func (e *Engine) CreateSnapshot(inst *instance.Instance, id, description string, globals *value.Object) (*instance.Snapshot, error) {
	snaps := inst.Snapshots()
	if snaps == nil {
		return nil, luaerr.RuntimeError("snapshots are not enabled for this engine")
	}
	return snaps.CreateSnapshot(id, description, globals, 0, 0)
}

// RestoreSnapshot restores a previously created snapshot's value tree.
// Applying the restored globals onto inst's live Lua state is the host's
// responsibility via stackconv.Push, since that requires a script-specific
// policy for which globals to overwrite.
func (e *Engine) RestoreSnapshot(inst *instance.Instance, id string) (*value.Object, error) {
	snaps := inst.Snapshots()
	if snaps == nil {
		return nil, luaerr.RuntimeError("snapshots are not enabled for this engine")
	}
	s, err := snaps.Get(id)
	if err != nil {
		return nil, err
	}
	return snaps.Restore(s)
}
