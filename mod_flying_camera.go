package arbor

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/arbor/scene"
)

// FlyingCameraModule drives the shared scene.CameraState from keyboard
// and mouse input. Tab toggles mouse capture; WASD moves in the view
// plane, Space/Control move along world Z.
type FlyingCameraModule struct{}

func (m FlyingCameraModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(flyingCameraSystem).
			InStage(Update),
	)
}

func flyingCameraSystem(input *Input, camera *scene.CameraState, time *Time) {
	if input.JustPressed[KeyTab] {
		input.MouseCaptured = !input.MouseCaptured
	}

	dt := time.DtSeconds()
	if dt <= 0 {
		return
	}

	// 1. Rotation
	if input.MouseCaptured {
		camera.Yaw += float32(input.MouseDeltaX) * camera.Sensitivity
		camera.Pitch -= float32(input.MouseDeltaY) * camera.Sensitivity
	}

	pitchLimit := float32(89.0 * math.Pi / 180.0)
	if camera.Pitch > pitchLimit {
		camera.Pitch = pitchLimit
	}
	if camera.Pitch < -pitchLimit {
		camera.Pitch = -pitchLimit
	}

	// 2. Movement
	forward := camera.Forward()
	right := camera.Right()
	up := mgl32.Vec3{0, 0, 1}

	moveDir := mgl32.Vec3{0, 0, 0}
	if input.Pressed[KeyW] {
		moveDir = moveDir.Add(forward)
	}
	if input.Pressed[KeyS] {
		moveDir = moveDir.Sub(forward)
	}
	if input.Pressed[KeyA] {
		moveDir = moveDir.Sub(right)
	}
	if input.Pressed[KeyD] {
		moveDir = moveDir.Add(right)
	}
	if input.Pressed[KeySpace] {
		moveDir = moveDir.Add(up)
	}
	if input.Pressed[KeyControl] {
		moveDir = moveDir.Sub(up)
	}

	speed := camera.Speed
	if input.Pressed[KeyShift] {
		speed *= 3
	}

	if moveDir.Len() > 0 {
		camera.Position = camera.Position.Add(moveDir.Normalize().Mul(speed * dt))
	}
}
