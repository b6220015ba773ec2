package domain

import (
	"go.trai.ch/zerr"
)

// FileStatter is the single point of filesystem observation the stat cache
// needs. A missing file reports mtime 0 with a nil error.
type FileStatter interface {
	Stat(path string) (int64, error)
}

// StatCache maps paths to observed modification times. Within one dirty
// traversal the observed mtime of a node is stable; entries are invalidated
// explicitly after a successful build step.
type StatCache struct {
	state  *State
	fsys   FileStatter
	mtimes map[InternedString]int64
}

func newStatCache(state *State, fsys FileStatter) *StatCache {
	return &StatCache{
		state:  state,
		fsys:   fsys,
		mtimes: make(map[InternedString]int64),
	}
}

// Stat observes n's modification time if it has not been observed yet.
func (c *StatCache) Stat(n *Node) error {
	if n.StatusKnown() {
		return nil
	}
	if mtime, ok := c.mtimes[n.Path]; ok {
		n.MTime = mtime
		return nil
	}
	mtime, err := c.fsys.Stat(n.Path.String())
	if err != nil {
		return zerr.With(zerr.Wrap(err, "stat failed"), "path", n.Path.String())
	}
	c.mtimes[n.Path] = mtime
	n.MTime = mtime
	return nil
}

// Touch records mtime for path and eagerly marks the node and its transitive
// outputs dirty.
func (c *StatCache) Touch(path string, mtime int64) {
	n := c.state.GetNode(path)
	c.mtimes[n.Path] = mtime
	n.MTime = mtime
	n.MarkDirty()
}

// Invalidate drops the cached observation for n so the next Stat hits the
// filesystem. Called on outputs after their edge ran.
func (c *StatCache) Invalidate(n *Node) {
	delete(c.mtimes, n.Path)
	n.MTime = -1
}
