package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

func TestMockEmitsAllThreeStreams(t *testing.T) {
	m := NewMock(32, 32, 60)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	deadline := time.After(3 * time.Second)
	var gotColor, gotDepth, gotSkel bool
	for !(gotColor && gotDepth && gotSkel) {
		select {
		case f := <-m.ColorFrames():
			assert.Equal(t, types.FormatColor, f.Format)
			assert.Len(t, f.Data, 32*32*4)
			gotColor = true
		case f := <-m.DepthFrames():
			assert.Len(t, f.Data, 32*32)
			gotDepth = true
		case f := <-m.SkeletonFrames():
			require.Len(t, f.Skeletons, 1)
			assert.True(t, f.Skeletons[0].Tracked)
			gotSkel = true
		case <-deadline:
			t.Fatalf("streams incomplete: color=%v depth=%v skeleton=%v",
				gotColor, gotDepth, gotSkel)
		}
	}

	stats := m.Stats()
	assert.NotZero(t, stats.ColorFrames)
	assert.NotZero(t, stats.DepthFrames)
	assert.NotZero(t, stats.SkeletonFrames)
}

func TestMockSkeletonProjectsIntoFrame(t *testing.T) {
	m := NewMock(640, 480, 30)
	f := m.createSkeletonFrame()

	require.Len(t, f.Skeletons, 1)
	sk := f.Skeletons[0]
	for _, j := range sk.Joints {
		assert.Equal(t, types.JointTracked, j.State)
		x, y, ok := m.MapSkeletonPoint(j, 640, 480)
		require.True(t, ok, "joint %d must project into the frame", j.ID)
		assert.GreaterOrEqual(t, x, 0)
		assert.Less(t, x, 640)
		assert.GreaterOrEqual(t, y, 0)
		assert.Less(t, y, 480)
	}

	// the head sits above the hip center on screen
	hx, hy, _ := m.MapSkeletonPoint(sk.Joints[types.JointHead], 640, 480)
	cx, cy, _ := m.MapSkeletonPoint(sk.Joints[types.JointHipCenter], 640, 480)
	assert.Equal(t, hx, cx)
	assert.Less(t, hy, cy)
}
