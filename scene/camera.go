package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraState is the camera/frustum provider consumed by the
// visibility and sort-key passes. Yaw/pitch fly-camera orientation,
// Z-up, matching the engine's world convention.
type CameraState struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Fov         float32 // vertical, degrees
	Aspect      float32
	Near        float32
	Far         float32
	Speed       float32
	Sensitivity float32

	frustum Frustum
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{0, -10, 2},
		Fov:         60,
		Aspect:      16.0 / 9.0,
		Near:        0.1,
		Far:         500,
		Speed:       10.0,
		Sensitivity: 0.003,
	}
}

func (c *CameraState) Forward() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
	}
}

func (c *CameraState) Right() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw))),
		float32(-math.Sin(float64(c.Yaw))),
		0,
	}
}

func (c *CameraState) ViewMatrix() mgl32.Mat4 {
	eye := c.Position
	target := eye.Add(c.Forward())
	up := mgl32.Vec3{0, 0, 1} // Z-up
	return mgl32.LookAtV(eye, target, up)
}

func (c *CameraState) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
}

// UpdateFrustum recomputes the cached frustum from the current
// view-projection. Call once per frame before the visibility pass.
func (c *CameraState) UpdateFrustum() {
	vp := c.ProjectionMatrix().Mul4(c.ViewMatrix())
	c.frustum = ExtractFrustum(vp)
}

func (c *CameraState) Frustum() *Frustum {
	return &c.frustum
}
