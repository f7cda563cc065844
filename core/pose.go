package core

import "github.com/go-gl/mathgl/mgl32"

// DefaultFallbackOffset is applied to the camera translation when a tap
// finds no surface: one metre in front of the viewpoint (-Z) and slightly
// below it (-Y).
var DefaultFallbackOffset = mgl32.Vec3{0, -0.3, -1.0}

// FallbackPose returns the camera pose with offset added to its translation
// column. Orientation is kept so content faces the user.
func FallbackPose(camera mgl32.Mat4, offset mgl32.Vec3) mgl32.Mat4 {
	pose := camera
	pose[12] += offset.X()
	pose[13] += offset.Y()
	pose[14] += offset.Z()
	return pose
}

// Translation extracts the world position of a pose.
func Translation(pose mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{pose[12], pose[13], pose[14]}
}

// PoseEqual reports whether two poses match within float32 tolerance.
func PoseEqual(a, b mgl32.Mat4) bool {
	return a.ApproxEqualThreshold(b, 1e-5)
}
