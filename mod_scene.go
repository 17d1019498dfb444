package arbor

import (
	"github.com/gekko3d/arbor/scene"
)

// SceneModule installs the scene graph and schedules its frame
// pipeline across the engine stages:
//
//	PreUpdate  — atomic-write drain, actions, animations
//	Update     — visibility (previous frame's transforms)
//	PostUpdate — transforms and constraints
//	PreRender  — sort-key generation and ordering
//	Render     — draw submission (when a RenderDriver resource exists)
//	Finale     — atomic snapshot sync, frame statistics
//
// The scene is owned by the goroutine that installs the module, which
// for a windowed app is the OS thread the render loop runs on.
type SceneModule struct {
	DisableCulling bool
	DebugSortOrder bool
}

// FrameStats is refreshed at the end of every frame. Consumed by the
// debug HUD.
type FrameStats struct {
	FrameIndex       uint64
	VisibleNodes     int
	SortKeys         int
	FurthestDistance float32
}

// sceneDriver lets the render module plug its scene.RenderDriver in
// after the scene module is installed.
type sceneDriver struct {
	driver scene.RenderDriver
}

func (m SceneModule) Install(app *App, cmd *Commands) {
	ctx := scene.NewContext()
	ctx.DisableCulling = m.DisableCulling
	ctx.DebugSortOrder = m.DebugSortOrder
	ctx.SetLogger(app.Logger())

	graph := scene.NewScene(ctx)

	camera := scene.NewCameraState()

	cmd.AddResources(ctx, graph, camera, &FrameStats{}, &sceneDriver{})

	app.UseSystem(System(sceneBehaviorSystem).InStage(PreUpdate))
	app.UseSystem(System(sceneVisibilitySystem).InStage(Update))
	app.UseSystem(System(sceneTransformSystem).InStage(PostUpdate))
	app.UseSystem(System(sceneSortSystem).InStage(PreRender))
	app.UseSystem(System(sceneDrawSystem).InStage(Render))
	app.UseSystem(System(sceneSyncSystem).InStage(Finale))
}

func sceneBehaviorSystem(graph *scene.Scene, time *Time) {
	graph.StepBehaviors(time.DtSeconds())
}

func sceneVisibilitySystem(graph *scene.Scene, camera *scene.CameraState) {
	graph.StepVisibility(camera)
}

func sceneTransformSystem(graph *scene.Scene, camera *scene.CameraState) {
	graph.StepTransforms(camera)
}

func sceneSortSystem(graph *scene.Scene, camera *scene.CameraState) {
	graph.StepSortKeys(camera)
}

func sceneDrawSystem(graph *scene.Scene, driver *sceneDriver) {
	graph.Draw(driver.driver)
}

func sceneSyncSystem(graph *scene.Scene, stats *FrameStats) {
	graph.StepSync()

	stats.FrameIndex++
	stats.VisibleNodes = graph.Root().CountVisibleNodes()
	stats.SortKeys = len(graph.SortedKeys())
	stats.FurthestDistance = graph.FurthestDistance
}
