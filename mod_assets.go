package arbor

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/arbor/scene"
)

type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

type TextureFormat uint32

const (
	TextureFormatR8Uint     TextureFormat = 0x00000003
	TextureFormatRGBA8Unorm TextureFormat = 0x00000012
)

// MeshVertex is the interleaved vertex layout shared by every mesh.
// The tags drive the reflected wgpu vertex buffer layout.
type MeshVertex struct {
	Pos    [3]float32 `arbor:"layout" format:"float32x3" location:"0"`
	Normal [3]float32 `arbor:"layout" format:"float32x3" location:"1"`
	UV     [2]float32 `arbor:"layout" format:"float32x2" location:"2"`
}

// MeshElement is one independently drawable index range of a mesh,
// with its sort-key contribution.
type MeshElement struct {
	IndexOffset int
	IndexCount  int
	SortHint    uint32
	Opaque      bool
}

// MeshGeometry is the concrete scene.Geometry of the engine: CPU-side
// vertex/index data plus per-element draw ranges. GPU buffers are
// uploaded lazily by the render module.
type MeshGeometry struct {
	id       AssetId
	vertices []MeshVertex
	indices  []uint16
	elements []MeshElement
	bounds   scene.BoundingBox

	onRelease func()
}

func (g *MeshGeometry) AssetId() AssetId { return g.id }

func (g *MeshGeometry) BoundingBox() scene.BoundingBox { return g.bounds }

func (g *MeshGeometry) ElementCount() int { return len(g.elements) }

func (g *MeshGeometry) ElementSortHint(element int) uint32 { return g.elements[element].SortHint }

func (g *MeshGeometry) ElementOpaque(element int) bool { return g.elements[element].Opaque }

// Triangles walks one element's index range in local space.
func (g *MeshGeometry) Triangles(element int, fn func(a, b, c mgl32.Vec3) bool) {
	el := g.elements[element]
	for i := el.IndexOffset; i+2 < el.IndexOffset+el.IndexCount; i += 3 {
		a := g.vertices[g.indices[i]].Pos
		b := g.vertices[g.indices[i+1]].Pos
		c := g.vertices[g.indices[i+2]].Pos
		if !fn(mgl32.Vec3(a), mgl32.Vec3(b), mgl32.Vec3(c)) {
			return
		}
	}
}

// Release frees GPU-side buffers if any were uploaded.
func (g *MeshGeometry) Release() {
	if g.onRelease != nil {
		g.onRelease()
		g.onRelease = nil
	}
}

type TextureAsset struct {
	Id     AssetId
	Texels []uint8
	Width  uint32
	Height uint32
	Format TextureFormat
}

// textureResult is one finished async load, delivered on the graph
// thread by the asset delivery system.
type textureResult struct {
	texture *TextureAsset
	err     error
	onDone  func(*TextureAsset, error)
}

// AssetServer owns mesh and texture assets. Synchronous loads return
// errors directly; async loads deliver through the delivery system so
// callbacks always run on the graph-owning goroutine.
type AssetServer struct {
	meshes   map[AssetId]*MeshGeometry
	textures map[AssetId]*TextureAsset

	completed chan textureResult
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&AssetServer{
		meshes:    make(map[AssetId]*MeshGeometry),
		textures:  make(map[AssetId]*TextureAsset),
		completed: make(chan textureResult, 16),
	})
	app.UseSystem(
		System(assetDeliverySystem).
			InStage(Prelude),
	)
}

// assetDeliverySystem hands finished async loads to their callbacks on
// the graph thread.
func assetDeliverySystem(server *AssetServer) {
	for {
		select {
		case result := <-server.completed:
			if result.texture != nil {
				server.textures[result.texture.Id] = result.texture
			}
			result.onDone(result.texture, result.err)
		default:
			return
		}
	}
}

// LoadMesh registers mesh data and computes its local bounds. Meshes
// without explicit elements get a single opaque element covering all
// indices.
func (server *AssetServer) LoadMesh(vertices []MeshVertex, indices []uint16, elements ...MeshElement) *MeshGeometry {
	if len(elements) == 0 {
		elements = []MeshElement{{IndexCount: len(indices), Opaque: true}}
	}

	bounds := scene.EmptyBox()
	for _, v := range vertices {
		bounds = bounds.Union(scene.BoxAt(mgl32.Vec3(v.Pos)))
	}

	mesh := &MeshGeometry{
		id:       makeAssetId(),
		vertices: vertices,
		indices:  indices,
		elements: elements,
		bounds:   bounds,
	}
	server.meshes[mesh.id] = mesh
	return mesh
}

// BoxMesh builds an axis-aligned box around the local origin.
func (server *AssetServer) BoxMesh(half mgl32.Vec3) *MeshGeometry {
	x, y, z := half.X(), half.Y(), half.Z()

	type face struct {
		corners [4][3]float32
		normal  [3]float32
	}
	faces := []face{
		{[4][3]float32{{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z}}, [3]float32{0, 0, 1}},
		{[4][3]float32{{x, -y, -z}, {-x, -y, -z}, {-x, y, -z}, {x, y, -z}}, [3]float32{0, 0, -1}},
		{[4][3]float32{{x, -y, -z}, {x, y, -z}, {x, y, z}, {x, -y, z}}, [3]float32{1, 0, 0}},
		{[4][3]float32{{-x, y, -z}, {-x, -y, -z}, {-x, -y, z}, {-x, y, z}}, [3]float32{-1, 0, 0}},
		{[4][3]float32{{-x, y, -z}, {x, y, -z}, {x, y, z}, {-x, y, z}}, [3]float32{0, 1, 0}},
		{[4][3]float32{{x, -y, -z}, {-x, -y, -z}, {-x, -y, z}, {x, -y, z}}, [3]float32{0, -1, 0}},
	}

	var vertices []MeshVertex
	var indices []uint16
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	for _, f := range faces {
		base := uint16(len(vertices))
		for i, c := range f.corners {
			vertices = append(vertices, MeshVertex{Pos: c, Normal: f.normal, UV: uvs[i]})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	return server.LoadMesh(vertices, indices)
}

// QuadMesh builds a single quad in the XZ plane facing +Y.
func (server *AssetServer) QuadMesh(width, depth float32) *MeshGeometry {
	w, d := width/2, depth/2
	vertices := []MeshVertex{
		{Pos: [3]float32{-w, 0, -d}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0, 0}},
		{Pos: [3]float32{w, 0, -d}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{1, 0}},
		{Pos: [3]float32{w, 0, d}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{1, 1}},
		{Pos: [3]float32{-w, 0, d}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0, 1}},
	}
	indices := []uint16{0, 1, 2, 0, 2, 3}
	return server.LoadMesh(vertices, indices)
}

// CreateTexture registers raw texel data.
func (server *AssetServer) CreateTexture(texels []uint8, width, height uint32, format TextureFormat) *TextureAsset {
	tx := &TextureAsset{
		Id:     makeAssetId(),
		Texels: texels,
		Width:  width,
		Height: height,
		Format: format,
	}
	server.textures[tx.Id] = tx
	return tx
}

// LoadTexture decodes a PNG file into an RGBA texture. Missing or
// malformed files are recoverable: the caller gets the error, the
// server stays consistent.
func (server *AssetServer) LoadTexture(filename string) (*TextureAsset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open texture %s: %w", filename, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", filename, err)
	}

	bounds := img.Bounds()
	rgbaImg, ok := img.(*image.RGBA)
	if !ok {
		rgbaImg = image.NewRGBA(bounds)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				rgbaImg.Set(x, y, img.At(x, y))
			}
		}
	}

	return server.CreateTexture(
		rgbaImg.Pix,
		uint32(bounds.Dx()),
		uint32(bounds.Dy()),
		TextureFormatRGBA8Unorm,
	), nil
}

// LoadTextureAsync decodes on a background goroutine and delivers the
// result (or error) to onDone on the graph thread during the next
// frame's delivery pass.
func (server *AssetServer) LoadTextureAsync(filename string, onDone func(*TextureAsset, error)) {
	go func() {
		tx, err := server.loadTextureOffThread(filename)
		server.completed <- textureResult{texture: tx, err: err, onDone: onDone}
	}()
}

// loadTextureOffThread decodes without touching the shared maps; the
// delivery callback registers the texture on the graph thread.
func (server *AssetServer) loadTextureOffThread(filename string) (*TextureAsset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open texture %s: %w", filename, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", filename, err)
	}

	bounds := img.Bounds()
	rgbaImg, ok := img.(*image.RGBA)
	if !ok {
		rgbaImg = image.NewRGBA(bounds)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				rgbaImg.Set(x, y, img.At(x, y))
			}
		}
	}

	return &TextureAsset{
		Id:     makeAssetId(),
		Texels: rgbaImg.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Format: TextureFormatRGBA8Unorm,
	}, nil
}

// Mesh looks up a registered mesh by id.
func (server *AssetServer) Mesh(id AssetId) (*MeshGeometry, bool) {
	mesh, ok := server.meshes[id]
	return mesh, ok
}

// Texture looks up a registered texture by id.
func (server *AssetServer) Texture(id AssetId) (*TextureAsset, bool) {
	tx, ok := server.textures[id]
	return tx, ok
}
