package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

func testConfig() Config {
	return Config{
		DeltaMM:       100,
		ChangedPixels: 3,
		Alpha:         0.05,
		MaxDepthMM:    4000,
	}
}

// depthFrame builds a flat scene at the given distance, packing the sample
// format the sensor delivers.
func depthFrame(w, h, depthMM int, ts time.Time) types.DepthFrame {
	data := make([]uint16, w*h)
	packed := uint16(depthMM) << types.DepthShift
	for i := range data {
		data[i] = packed
	}
	return types.DepthFrame{Timestamp: ts, Width: w, Height: h, Data: data}
}

func TestFirstFrameSeedsWithoutFiring(t *testing.T) {
	d := NewDetector(testConfig())

	_, fired := d.Process(depthFrame(4, 4, 2000, time.Now()))

	assert.False(t, fired)
	assert.InDelta(t, 2000, d.Background(0, 0), 0.001)
	assert.InDelta(t, 2000, d.Background(3, 3), 0.001)
}

func TestStableSceneNeverFires(t *testing.T) {
	d := NewDetector(testConfig())

	for i := 0; i < 50; i++ {
		_, fired := d.Process(depthFrame(4, 4, 2000, time.Now()))
		assert.False(t, fired)
	}
	assert.Equal(t, uint64(0), d.Stats().EventsFired)
	assert.Equal(t, uint64(50), d.Stats().FramesProcessed)
}

func TestFiresWhenEnoughPixelsChange(t *testing.T) {
	d := NewDetector(testConfig())
	d.Process(depthFrame(4, 4, 2000, time.Now()))

	ts := time.Now()
	f := depthFrame(4, 4, 2000, ts)
	for i := 0; i < 4; i++ {
		f.Data[i] = uint16(2200) << types.DepthShift
	}

	ev, fired := d.Process(f)
	assert.True(t, fired)
	assert.Equal(t, 4, ev.ChangedPixels)
	assert.Equal(t, ts, ev.Timestamp)
	assert.Equal(t, ts, d.LastMotion())
}

func TestBelowPixelCountThresholdDoesNotFire(t *testing.T) {
	d := NewDetector(testConfig())
	d.Process(depthFrame(4, 4, 2000, time.Now()))

	// exactly the threshold count must not fire; the count has to exceed it
	f := depthFrame(4, 4, 2000, time.Now())
	for i := 0; i < 3; i++ {
		f.Data[i] = uint16(2500) << types.DepthShift
	}

	_, fired := d.Process(f)
	assert.False(t, fired)
	assert.True(t, d.LastMotion().IsZero())
}

func TestDeviationAtDeltaIsNotChanged(t *testing.T) {
	d := NewDetector(testConfig())
	d.Process(depthFrame(4, 4, 2000, time.Now()))

	// exactly DeltaMM away: |2100-2000| is not > 100
	f := depthFrame(4, 4, 2100, time.Now())
	_, fired := d.Process(f)
	assert.False(t, fired)
}

func TestInvalidReadingsAreDiscarded(t *testing.T) {
	d := NewDetector(testConfig())
	f := depthFrame(4, 4, 2000, time.Now())
	f.Data[0] = 0                                // no reading
	f.Data[1] = uint16(4500) << types.DepthShift // beyond reliable range
	d.Process(f)

	assert.InDelta(t, 0, d.Background(0, 0), 0.001, "zero reading must not seed")
	assert.InDelta(t, 0, d.Background(1, 0), 0.001, "out-of-range reading must not seed")
	assert.InDelta(t, 2000, d.Background(2, 0), 0.001)

	// a scene full of invalid pixels can never fire
	all := depthFrame(4, 4, 0, time.Now())
	_, fired := d.Process(all)
	assert.False(t, fired)
}

func TestBackgroundAbsorbsChangesSlowly(t *testing.T) {
	d := NewDetector(testConfig())
	d.Process(depthFrame(4, 4, 2000, time.Now()))

	// a persistent step gets folded in at rate alpha even while flagged
	d.Process(depthFrame(4, 4, 2200, time.Now()))
	assert.InDelta(t, 2010, d.Background(0, 0), 0.001)

	// after enough frames the new distance becomes the background
	for i := 0; i < 300; i++ {
		d.Process(depthFrame(4, 4, 2200, time.Now()))
	}
	assert.InDelta(t, 2200, d.Background(0, 0), 1.0)

	_, fired := d.Process(depthFrame(4, 4, 2200, time.Now()))
	assert.False(t, fired, "absorbed change must stop firing")
}

func TestResolutionChangeResetsModel(t *testing.T) {
	d := NewDetector(testConfig())
	d.Process(depthFrame(4, 4, 2000, time.Now()))

	// same pixel count, different geometry: model restarts from seeding
	_, fired := d.Process(depthFrame(8, 2, 3000, time.Now()))
	assert.False(t, fired)
	assert.InDelta(t, 3000, d.Background(7, 1), 0.001)

	// and so does a genuine resolution change
	_, fired = d.Process(depthFrame(6, 6, 1500, time.Now()))
	assert.False(t, fired)
	assert.InDelta(t, 1500, d.Background(5, 5), 0.001)
}

func TestTruncatedFrameIsIgnored(t *testing.T) {
	d := NewDetector(testConfig())
	d.Process(depthFrame(4, 4, 2000, time.Now()))

	f := depthFrame(4, 4, 3000, time.Now())
	f.Data = f.Data[:5]

	_, fired := d.Process(f)
	assert.False(t, fired)
	// the model keeps its estimates for the next well-formed frame
	assert.InDelta(t, 2000, d.Background(0, 0), 0.001)
}
