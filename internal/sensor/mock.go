package sensor

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AceArd86/kinect-ip-cam/internal/types"
)

const (
	mockTiltMin = -27
	mockTiltMax = 27

	// audio stream format: 16 kHz mono 16-bit PCM
	mockAudioBytesPerSecond = 32000
)

// Mock generates synthetic frames for development and testing without
// real hardware.
type Mock struct {
	width  int
	height int
	fps    int

	colorCh chan types.ColorFrame
	depthCh chan types.DepthFrame
	skelCh  chan types.SkeletonFrame
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu             sync.RWMutex
	format         types.StreamFormat
	brightness     uint8 // synthetic scene brightness for color frames
	sceneDepthMM   int   // synthetic flat scene distance
	tilt           int
	seq            uint64
	depthSeq       uint64
	colorFrames    uint64
	depthFrames    uint64
	skeletonFrames uint64
	formatSwitches uint64
	isRunning      bool
	startTime      time.Time
}

// NewMock creates a mock sensor with the given geometry and frame rate.
func NewMock(width, height, fps int) *Mock {
	return &Mock{
		width:        width,
		height:       height,
		fps:          fps,
		format:       types.FormatColor,
		brightness:   128,
		sceneDepthMM: 2000,
		colorCh:      make(chan types.ColorFrame, 2),
		depthCh:      make(chan types.DepthFrame, 2),
		skelCh:       make(chan types.SkeletonFrame, 2),
		stopCh:       make(chan struct{}),
	}
}

// Start begins generating frames
func (m *Mock) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("sensor already running")
	}
	m.isRunning = true
	m.startTime = time.Now()
	m.mu.Unlock()

	slog.Info("mock sensor starting",
		"width", m.width,
		"height", m.height,
		"fps", m.fps,
	)

	m.wg.Add(1)
	go m.generateFrames(ctx)

	return nil
}

// Stop stops frame generation
func (m *Mock) Stop() error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()

	slog.Info("mock sensor stopped",
		"color_frames", m.colorFrames,
		"depth_frames", m.depthFrames,
	)

	return nil
}

func (m *Mock) ColorFrames() <-chan types.ColorFrame       { return m.colorCh }
func (m *Mock) DepthFrames() <-chan types.DepthFrame       { return m.depthCh }
func (m *Mock) SkeletonFrames() <-chan types.SkeletonFrame { return m.skelCh }

// SetColorFormat switches the synthetic color stream format.
func (m *Mock) SetColorFormat(f types.StreamFormat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f == m.format {
		return nil
	}
	m.format = f
	m.formatSwitches++
	slog.Info("mock sensor stream format switched", "format", f.String())
	return nil
}

// SetBrightness adjusts the synthetic scene brightness (drives auto-night).
func (m *Mock) SetBrightness(v uint8) {
	m.mu.Lock()
	m.brightness = v
	m.mu.Unlock()
}

// SetSceneDepth adjusts the synthetic flat scene distance in millimeters.
func (m *Mock) SetSceneDepth(mm int) {
	m.mu.Lock()
	m.sceneDepthMM = mm
	m.mu.Unlock()
}

// MapSkeletonPoint projects skeleton space onto the image with a fixed
// pinhole approximation, matching the vendor mapper closely enough for
// overlay purposes.
func (m *Mock) MapSkeletonPoint(j types.Joint, width, height int) (int, int, bool) {
	if j.Z <= 0 {
		return 0, 0, false
	}
	// ~57 degree horizontal field of view
	const focal = 571.0
	x := int(float32(width)/2 + j.X/j.Z*focal)
	y := int(float32(height)/2 - j.Y/j.Z*focal)
	if x < 0 || x >= width || y < 0 || y >= height {
		return 0, 0, false
	}
	return x, y, true
}

func (m *Mock) TiltRange() (int, int) { return mockTiltMin, mockTiltMax }

func (m *Mock) Tilt() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tilt
}

func (m *Mock) SetTilt(angle int) error {
	if angle < mockTiltMin || angle > mockTiltMax {
		return fmt.Errorf("tilt angle %d outside device range [%d,%d]", angle, mockTiltMin, mockTiltMax)
	}
	m.mu.Lock()
	m.tilt = angle
	m.mu.Unlock()
	return nil
}

// OpenAudio returns a silence PCM stream.
func (m *Mock) OpenAudio() (io.ReadCloser, error) {
	return &silenceReader{}, nil
}

// Stats returns sensor statistics
func (m *Mock) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		ColorFrames:    m.colorFrames,
		DepthFrames:    m.depthFrames,
		SkeletonFrames: m.skeletonFrames,
		FormatSwitches: m.formatSwitches,
		Format:         m.format,
		IsRunning:      m.isRunning,
	}
}

// generateFrames emits synthetic color and depth frames at the target FPS.
func (m *Mock) generateFrames(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(m.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			color := m.createColorFrame()
			depth := m.createDepthFrame()
			skel := m.createSkeletonFrame()

			// drop-on-slow: never block frame generation
			select {
			case m.colorCh <- color:
				m.mu.Lock()
				m.colorFrames++
				m.mu.Unlock()
			default:
			}
			select {
			case m.depthCh <- depth:
				m.mu.Lock()
				m.depthFrames++
				m.mu.Unlock()
			default:
			}
			select {
			case m.skelCh <- skel:
				m.mu.Lock()
				m.skeletonFrames++
				m.mu.Unlock()
			default:
			}
		}
	}
}

func (m *Mock) createColorFrame() types.ColorFrame {
	m.mu.Lock()
	seq := m.seq
	m.seq++
	format := m.format
	brightness := m.brightness
	m.mu.Unlock()

	f := types.ColorFrame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     m.width,
		Height:    m.height,
		Format:    format,
		TraceID:   uuid.New().String(),
	}

	switch format {
	case types.FormatInfrared:
		f.BytesPerPixel = 2
		f.Data = make([]byte, m.width*m.height*2)
		// uniform mid-range intensity
		intensity := uint16(brightness) << 6
		for i := 0; i < len(f.Data); i += 2 {
			binary.LittleEndian.PutUint16(f.Data[i:], intensity)
		}
	default:
		f.BytesPerPixel = 4
		f.Data = make([]byte, m.width*m.height*4)
		for i := 0; i < len(f.Data); i += 4 {
			f.Data[i] = brightness     // B
			f.Data[i+1] = brightness   // G
			f.Data[i+2] = brightness   // R
			f.Data[i+3] = 0xff         // X
		}
	}
	return f
}

func (m *Mock) createDepthFrame() types.DepthFrame {
	m.mu.Lock()
	seq := m.depthSeq
	m.depthSeq++
	depthMM := m.sceneDepthMM
	m.mu.Unlock()

	data := make([]uint16, m.width*m.height)
	packed := uint16(depthMM) << types.DepthShift
	for i := range data {
		data[i] = packed
	}

	return types.DepthFrame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     m.width,
		Height:    m.height,
		Data:      data,
	}
}

// mockJointY gives each joint a rough standing-pose height in meters,
// head at the top, feet at the bottom.
var mockJointY = [types.JointCount]float32{
	types.JointHipCenter:      0.0,
	types.JointSpine:          0.2,
	types.JointShoulderCenter: 0.45,
	types.JointHead:           0.65,
	types.JointShoulderLeft:   0.4,
	types.JointElbowLeft:      0.2,
	types.JointWristLeft:      0.0,
	types.JointHandLeft:       -0.05,
	types.JointShoulderRight:  0.4,
	types.JointElbowRight:     0.2,
	types.JointWristRight:     0.0,
	types.JointHandRight:      -0.05,
	types.JointHipLeft:        -0.05,
	types.JointKneeLeft:       -0.4,
	types.JointAnkleLeft:      -0.7,
	types.JointFootLeft:       -0.75,
	types.JointHipRight:       -0.05,
	types.JointKneeRight:      -0.4,
	types.JointAnkleRight:     -0.7,
	types.JointFootRight:      -0.75,
}

// createSkeletonFrame emits one fully tracked synthetic body standing at the
// scene distance, centered in the view.
func (m *Mock) createSkeletonFrame() types.SkeletonFrame {
	m.mu.RLock()
	z := float32(m.sceneDepthMM) / 1000
	m.mu.RUnlock()
	if z <= 0 {
		z = 2
	}

	var sk types.Skeleton
	sk.TrackingID = 1
	sk.Tracked = true
	for id := types.JointID(0); id < types.JointCount; id++ {
		var x float32
		switch id {
		case types.JointShoulderLeft, types.JointElbowLeft, types.JointWristLeft,
			types.JointHandLeft, types.JointHipLeft, types.JointKneeLeft,
			types.JointAnkleLeft, types.JointFootLeft:
			x = -0.2
		case types.JointShoulderRight, types.JointElbowRight, types.JointWristRight,
			types.JointHandRight, types.JointHipRight, types.JointKneeRight,
			types.JointAnkleRight, types.JointFootRight:
			x = 0.2
		}
		sk.Joints[id] = types.Joint{
			ID:    id,
			State: types.JointTracked,
			X:     x,
			Y:     mockJointY[id],
			Z:     z,
		}
	}

	return types.SkeletonFrame{
		Timestamp: time.Now(),
		Skeletons: []types.Skeleton{sk},
	}
}

// silenceReader produces zeroed PCM samples at an unbounded rate. Recording
// duration is byte-count based, so pacing is unnecessary.
type silenceReader struct {
	closed bool
}

func (r *silenceReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, io.EOF
	}
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func (r *silenceReader) Close() error {
	r.closed = true
	return nil
}
