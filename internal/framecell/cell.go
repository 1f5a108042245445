// Package framecell holds the latest rendered frame and the latest skeleton
// set as atomically swapped immutable snapshots. Producers swap, consumers
// load; nobody holds a lock while encoding.
package framecell

import (
	"sync/atomic"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

// FrameCell is the single shared "latest rendered frame" slot. The stored
// frame is immutable; a publish supersedes (and releases) the previous one.
type FrameCell struct {
	p atomic.Pointer[types.RenderedFrame]
}

// Publish swaps in a new frame. The frame must not be modified afterwards.
func (c *FrameCell) Publish(f *types.RenderedFrame) {
	c.p.Store(f)
}

// Latest returns the current frame, or nil before the first publish. The
// returned frame is shared and must be treated as read-only.
func (c *FrameCell) Latest() *types.RenderedFrame {
	return c.p.Load()
}

// SkeletonCell is the "last known skeletons" slot, same discipline as
// FrameCell. Stale data is reused until a fresher frame arrives.
type SkeletonCell struct {
	p atomic.Pointer[types.SkeletonFrame]
}

// Publish swaps in a new skeleton frame.
func (c *SkeletonCell) Publish(f *types.SkeletonFrame) {
	c.p.Store(f)
}

// Latest returns the current skeleton frame, or nil if none arrived yet.
func (c *SkeletonCell) Latest() *types.SkeletonFrame {
	return c.p.Load()
}
