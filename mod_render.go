package arbor

import (
	"fmt"
	"reflect"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/arbor/scene"
)

// RenderModule is the mesh renderer. It owns the window surface, the
// wgpu device and the draw pipeline, and plugs a scene.RenderDriver
// into the scene module so sorted draw submissions reach the GPU.
//
// Submission is two-phase: during the Render stage the driver only
// records draw commands in sorted order; the flush system then encodes
// one render pass for the whole frame and presents.
type RenderModule struct {
	Width  int
	Height int
	Title  string
}

const meshShaderCode = `
struct DrawUniform {
    mvp:       mat4x4<f32>,
    normal_mx: mat4x4<f32>,
    tint:      vec4<f32>,
};

@group(0) @binding(0) var<uniform> draw: DrawUniform;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) normal: vec3<f32>,
    @location(1) uv: vec2<f32>,
};

@vertex
fn vs_main(
    @location(0) pos: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
) -> VertexOutput {
    var out: VertexOutput;
    out.position = draw.mvp * vec4<f32>(pos, 1.0);
    out.normal = normalize((draw.normal_mx * vec4<f32>(normal, 0.0)).xyz);
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let light_dir = normalize(vec3<f32>(0.4, -0.6, 1.0));
    let ambient = 0.25;
    let diffuse = max(dot(normalize(in.normal), light_dir), 0.0);
    let shade = ambient + (1.0 - ambient) * diffuse;
    let rgb = draw.tint.rgb * shade;
    return vec4<f32>(rgb * draw.tint.a, draw.tint.a);
}
`

// drawUniform is the per-draw uniform block. Must match DrawUniform in
// the shader.
type drawUniform struct {
	Mvp      mgl32.Mat4
	NormalMx mgl32.Mat4
	Tint     mgl32.Vec4
}

// uniformStride is the dynamic-offset slot size; 256 is the minimum
// alignment wgpu guarantees on every backend.
const uniformStride = 256

const drawUniformSize = 64 + 64 + 16

type drawCmd struct {
	mesh      *MeshGeometry
	element   int
	transform mgl32.Mat4
	normalMx  mgl32.Mat4
	opacity   float32
}

type gpuMesh struct {
	vertexBuf *wgpu.Buffer
	indexBuf  *wgpu.Buffer
}

type renderState struct {
	pipeline        *wgpu.RenderPipeline
	bindGroupLayout *wgpu.BindGroupLayout
	depthView       *wgpu.TextureView

	uniformBuf   *wgpu.Buffer
	uniformSlots int
	bindGroup    *wgpu.BindGroup

	meshes map[AssetId]*gpuMesh

	cmds []drawCmd
}

func (m RenderModule) Install(app *App, cmd *Commands) {
	ensureSingleRenderer(app, "mesh")

	NewPlatformWindow(m.Width, m.Height, m.Title).Install(app, cmd)

	win := mustResource[WindowState](app)
	gpuState := createGpuState(win)

	bgl, err := gpuState.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Draw Uniforms",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   drawUniformSize,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	layout, err := gpuState.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		panic(err)
	}
	defer layout.Release()

	state := &renderState{
		pipeline:        createRenderPipeline("mesh", meshShaderCode, MeshVertex{}, layout, true, gpuState),
		bindGroupLayout: bgl,
		depthView:       createDepthView(gpuState),
		meshes:          make(map[AssetId]*gpuMesh),
	}
	state.growUniforms(gpuState, 64)

	cmd.AddResources(gpuState, state)

	// The scene module's draw system feeds the driver in sorted order.
	driver := mustResource[sceneDriver](app)
	driver.driver = &meshRenderDriver{state: state}

	app.UseSystem(System(renderFlushSystem).InStage(PostRender))
	app.UseSystem(System(windowCloseSystem).InStage(Finale))
}

// mustResource fetches an installed resource by type; modules that
// depend on another module's resources use it at install time.
func mustResource[T any](app *App) *T {
	t := reflect.TypeOf((*T)(nil)).Elem()
	res, ok := app.resources[t]
	if !ok {
		panic(fmt.Sprintf("required resource %s missing; install the providing module first", t))
	}
	return res.(*T)
}

func createDepthView(gpuState *GpuState) *wgpu.TextureView {
	depth, err := gpuState.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth",
		Size: wgpu.Extent3D{
			Width:              gpuState.surfaceConfig.Width,
			Height:             gpuState.surfaceConfig.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	view, err := depth.CreateView(nil)
	if err != nil {
		panic(err)
	}
	return view
}

// growUniforms (re)allocates the per-draw uniform slab and its bind
// group for at least n slots.
func (rs *renderState) growUniforms(gpuState *GpuState, n int) {
	if rs.uniformSlots >= n {
		return
	}
	slots := rs.uniformSlots
	if slots == 0 {
		slots = 64
	}
	for slots < n {
		slots *= 2
	}

	if rs.uniformBuf != nil {
		rs.uniformBuf.Release()
	}
	if rs.bindGroup != nil {
		rs.bindGroup.Release()
	}

	rs.uniformBuf = createUniformBuffer("Draw Uniforms", uint64(slots*uniformStride), gpuState)

	bindGroup, err := gpuState.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: rs.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: rs.uniformBuf, Size: drawUniformSize},
		},
	})
	if err != nil {
		panic(err)
	}
	rs.bindGroup = bindGroup
	rs.uniformSlots = slots
}

// meshRenderDriver records the scene's sorted draw submissions. The
// actual GPU work happens in renderFlushSystem.
type meshRenderDriver struct {
	state *renderState
}

func (d *meshRenderDriver) Draw(node *scene.Node, element int, transform, inverseTranspose mgl32.Mat4, opacity float32) {
	mesh, ok := node.Geometry().(*MeshGeometry)
	if !ok {
		return
	}
	d.state.cmds = append(d.state.cmds, drawCmd{
		mesh:      mesh,
		element:   element,
		transform: transform,
		normalMx:  inverseTranspose,
		opacity:   opacity,
	})
}

// meshBuffers uploads a mesh's vertex and index data on first use and
// hooks its release into the node destruction path.
func (rs *renderState) meshBuffers(mesh *MeshGeometry, gpuState *GpuState) *gpuMesh {
	if gm, ok := rs.meshes[mesh.id]; ok {
		return gm
	}

	vertexBuf, indexBuf := createVertexIndexBuffers(mesh.vertices, mesh.indices, gpuState.device)
	gm := &gpuMesh{vertexBuf: vertexBuf, indexBuf: indexBuf}
	rs.meshes[mesh.id] = gm

	id := mesh.id
	mesh.onRelease = func() {
		if cached, ok := rs.meshes[id]; ok {
			cached.vertexBuf.Release()
			cached.indexBuf.Release()
			delete(rs.meshes, id)
		}
	}
	return gm
}

// renderFlushSystem encodes the frame's recorded draws into a single
// render pass and presents.
func renderFlushSystem(gpuState *GpuState, rs *renderState, camera *scene.CameraState) {
	cmds := rs.cmds
	rs.cmds = rs.cmds[:0]

	nextTexture, err := gpuState.surface.GetCurrentTexture()
	if err != nil {
		panic(err)
	}
	view, err := nextTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	defer view.Release()
	encoder, err := gpuState.device.CreateCommandEncoder(nil)
	if err != nil {
		panic(err)
	}
	defer encoder.Release()

	if len(cmds) > 0 {
		rs.growUniforms(gpuState, len(cmds))

		viewProj := camera.ProjectionMatrix().Mul4(camera.ViewMatrix())

		slab := make([]byte, len(cmds)*uniformStride)
		for i, c := range cmds {
			uniform := drawUniform{
				Mvp:      viewProj.Mul4(c.transform),
				NormalMx: c.normalMx,
				Tint:     mgl32.Vec4{1, 1, 1, c.opacity},
			}
			copy(slab[i*uniformStride:], wgpu.ToBytes([]drawUniform{uniform}))
		}
		if err := gpuState.queue.WriteBuffer(rs.uniformBuf, 0, slab); err != nil {
			panic(err)
		}
	}

	renderPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0.05, G: 0.07, B: 0.1, A: 1.0},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            rs.depthView,
			DepthClearValue: 1.0,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
		},
	})
	defer renderPass.Release()

	renderPass.SetPipeline(rs.pipeline)
	for i, c := range cmds {
		gm := rs.meshBuffers(c.mesh, gpuState)
		el := c.mesh.elements[c.element]

		renderPass.SetVertexBuffer(0, gm.vertexBuf, 0, wgpu.WholeSize)
		renderPass.SetIndexBuffer(gm.indexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
		renderPass.SetBindGroup(0, rs.bindGroup, []uint32{uint32(i * uniformStride)})
		renderPass.DrawIndexed(uint32(el.IndexCount), 1, uint32(el.IndexOffset), 0, 0)
	}

	if err := renderPass.End(); err != nil {
		panic(err)
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		panic(err)
	}
	defer cmdBuffer.Release()

	gpuState.queue.Submit(cmdBuffer)
	gpuState.surface.Present()
}

func windowCloseSystem(win *WindowState, cmd *Commands) {
	if win.ShouldClose() {
		cmd.Quit()
	}
}
