package types

import "time"

// JointID identifies one of the 20 tracked body joints.
type JointID int

const (
	JointHipCenter JointID = iota
	JointSpine
	JointShoulderCenter
	JointHead
	JointShoulderLeft
	JointElbowLeft
	JointWristLeft
	JointHandLeft
	JointShoulderRight
	JointElbowRight
	JointWristRight
	JointHandRight
	JointHipLeft
	JointKneeLeft
	JointAnkleLeft
	JointFootLeft
	JointHipRight
	JointKneeRight
	JointAnkleRight
	JointFootRight

	JointCount
)

// TrackingState describes the sensor's confidence in a joint position.
type TrackingState int

const (
	// JointNotTracked means the joint position is unknown
	JointNotTracked TrackingState = iota
	// JointInferred means the position was estimated, not directly observed
	JointInferred
	// JointTracked means the position was directly observed
	JointTracked
)

// Joint is a single tracked body joint in skeleton space (meters).
type Joint struct {
	ID    JointID
	State TrackingState
	X     float32
	Y     float32
	Z     float32
}

// Skeleton is one tracked body.
type Skeleton struct {
	// TrackingID is the sensor-assigned identity of this body
	TrackingID int
	// Tracked reports whether full joint tracking is available
	Tracked bool
	Joints  [JointCount]Joint
}

// SkeletonFrame is the set of bodies seen in one skeleton-stream frame.
// Owned by the sensor; copied into the latest-skeleton slot for overlay
// rendering. Stale frames are acceptable and simply reused.
type SkeletonFrame struct {
	Timestamp time.Time
	Skeletons []Skeleton
}
