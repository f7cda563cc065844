package testutil

import "github.com/go-gl/mathgl/mgl32"

// At returns a pure translation pose.
func At(x, y, z float32) mgl32.Mat4 { return mgl32.Translate3D(x, y, z) }

// Facing returns a pose at (x, y, z) rotated about +Y by yaw radians.
func Facing(x, y, z, yaw float32) mgl32.Mat4 {
	return mgl32.Translate3D(x, y, z).Mul4(mgl32.HomogRotate3DY(yaw))
}
