package scene

import (
	"hash/fnv"

	"github.com/go-gl/mathgl/mgl32"
)

type LightType uint32

const (
	LightTypePoint       LightType = 0
	LightTypeDirectional LightType = 1
	LightTypeSpot        LightType = 2
	LightTypeAmbient     LightType = 3
)

// Light is a node attachment. Position and Direction are in the local
// space of the owning node; the sort-key pass writes the transformed
// world-space values each frame.
type Light struct {
	Type      LightType
	Color     [3]float32
	Intensity float32
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	ConeAngle float32 // degrees, spot only

	// Attenuation range in world units. Nodes whose bounding box lies
	// beyond AttenuationEnd are not lit by this light. Ambient and
	// directional lights never attenuate.
	AttenuationStart float32
	AttenuationEnd   float32

	// InfluenceBitMask is intersected with each node's light-receiving
	// mask; zero overlap means the light is skipped for that node.
	InfluenceBitMask uint32

	id uint32

	transformedPosition  mgl32.Vec3
	transformedDirection mgl32.Vec3
}

// NewLight allocates a light with an id from the context. The id
// participates in sort-key light-set hashing, so lights from different
// contexts must not be mixed in one graph.
func NewLight(ctx *Context, kind LightType) *Light {
	return &Light{
		Type:             kind,
		Color:            [3]float32{1, 1, 1},
		Intensity:        1000,
		AttenuationEnd:   boxInf,
		InfluenceBitMask: 1,
		id:               ctx.nextLightID(),
	}
}

func (l *Light) ID() uint32 {
	return l.id
}

func (l *Light) TransformedPosition() mgl32.Vec3 {
	return l.transformedPosition
}

func (l *Light) TransformedDirection() mgl32.Vec3 {
	return l.transformedDirection
}

func (l *Light) setTransformed(worldTransform mgl32.Mat4, worldRotation mgl32.Mat4) {
	l.transformedPosition = worldTransform.Mul4x1(l.Position.Vec4(1)).Vec3()
	l.transformedDirection = worldRotation.Mul4x1(l.Direction.Vec4(0)).Vec3()
}

// influences reports whether the light affects a node with the given
// receiving mask and world bounding box.
func (l *Light) influences(receivingMask uint32, box BoundingBox) bool {
	if l.InfluenceBitMask&receivingMask == 0 {
		return false
	}
	if l.Type == LightTypeAmbient || l.Type == LightTypeDirectional {
		return true
	}
	if box.IsEmpty() {
		return true
	}
	return box.DistanceToPoint(l.transformedPosition) <= l.AttenuationEnd
}

// hashLights folds the ids of the influencing light set into a
// deterministic signature. Order matters: the caller passes lights in
// traversal order, which is stable for a given tree shape.
func hashLights(lights []*Light) uint32 {
	h := fnv.New32a()
	var b [4]byte
	for _, l := range lights {
		b[0] = byte(l.id)
		b[1] = byte(l.id >> 8)
		b[2] = byte(l.id >> 16)
		b[3] = byte(l.id >> 24)
		h.Write(b[:])
	}
	return h.Sum32()
}
