package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func runSortPass(root *Node, camera *CameraState) *RenderParams {
	root.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())
	root.UpdateVisibility(camera)
	params := NewRenderParams(camera, camera.Far)
	root.UpdateSortKeys(0, params)
	return params
}

func TestHierarchySharesDistance(t *testing.T) {
	ctx := NewContext()
	camera := frontCamera()

	root := NewNode(ctx)
	top := NewNode(ctx)
	top.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	top.SetHierarchicalRendering(true)
	member := NewNode(ctx)
	member.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	member.SetPosition(mgl32.Vec3{0, 5, 0}) // different camera distance
	root.AddChild(top)
	top.AddChild(member)

	runSortPass(root, camera)

	topKey := top.sortKeys[0]
	memberKey := member.sortKeys[0]

	if topKey.HierarchyID == 0 || topKey.HierarchyID != memberKey.HierarchyID {
		t.Fatalf("hierarchy ids = %d, %d", topKey.HierarchyID, memberKey.HierarchyID)
	}
	if memberKey.HierarchyDepth != topKey.HierarchyDepth+1 {
		t.Fatalf("hierarchy depths = %d, %d", topKey.HierarchyDepth, memberKey.HierarchyDepth)
	}
	if topKey.Distance != memberKey.Distance {
		t.Fatalf("member distance %f differs from top %f", memberKey.Distance, topKey.Distance)
	}
}

func TestSeparateHierarchiesGetDistinctIDs(t *testing.T) {
	ctx := NewContext()
	camera := frontCamera()

	root := NewNode(ctx)
	a := NewNode(ctx)
	a.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	a.SetHierarchicalRendering(true)
	b := NewNode(ctx)
	b.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	b.SetHierarchicalRendering(true)
	root.AddChild(a)
	root.AddChild(b)

	runSortPass(root, camera)

	if a.sortKeys[0].HierarchyID == b.sortKeys[0].HierarchyID {
		t.Fatalf("independent hierarchies share id %d", a.sortKeys[0].HierarchyID)
	}
}

func TestCompositeOpacity(t *testing.T) {
	ctx := NewContext()
	camera := frontCamera()

	root := NewNode(ctx)
	parent := NewNode(ctx)
	parent.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	parent.SetOpacity(0.5)
	child := NewNode(ctx)
	child.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	child.SetOpacity(0.5)
	root.AddChild(parent)
	parent.AddChild(child)

	runSortPass(root, camera)

	if !approx(child.ComputedOpacity(), 0.25, 1e-6) {
		t.Fatalf("composite opacity = %f, want 0.25", child.ComputedOpacity())
	}
}

func TestHiddenThresholdSkipsCollection(t *testing.T) {
	ctx := NewContext()
	camera := frontCamera()

	root := NewNode(ctx)
	parent := NewNode(ctx)
	parent.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	parent.SetOpacity(0.1)
	child := NewNode(ctx)
	child.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	child.SetOpacity(0.1) // composite 0.01, below the threshold
	root.AddChild(parent)
	parent.AddChild(child)

	runSortPass(root, camera)

	var keys []SortKey
	root.CollectSortKeys(&keys)

	for _, key := range keys {
		if key.Node == child {
			t.Fatalf("near-invisible child still collected")
		}
	}
	found := false
	for _, key := range keys {
		found = found || key.Node == parent
	}
	if !found {
		t.Fatalf("translucent parent missing from collection")
	}
}

func TestHiddenFlagZeroesOpacity(t *testing.T) {
	ctx := NewContext()
	camera := frontCamera()

	root := NewNode(ctx)
	n := NewNode(ctx)
	n.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	root.AddChild(n)
	n.SetHidden(true)

	runSortPass(root, camera)

	if !n.Hidden() {
		t.Fatalf("hidden flag not set")
	}
	if n.ComputedOpacity() != 0 {
		t.Fatalf("hidden node composite opacity = %f", n.ComputedOpacity())
	}
}

func TestFurthestDistanceTracksBoxCorner(t *testing.T) {
	ctx := NewContext()
	camera := frontCamera()

	root := NewNode(ctx)
	n := NewNode(ctx)
	n.SetGeometry(newBoxGeometry(mgl32.Vec3{2, 2, 2}))
	root.AddChild(n)

	params := runSortPass(root, camera)

	want := n.WorldBoundingBox().FurthestDistanceToPoint(camera.Position)
	if !approx(params.FurthestDistanceFromCamera, want, 1e-5) {
		t.Fatalf("furthest distance = %f, want %f", params.FurthestDistanceFromCamera, want)
	}
	center := n.ComputedPosition().Sub(camera.Position).Len()
	if params.FurthestDistanceFromCamera <= center {
		t.Fatalf("furthest distance %f not beyond center distance %f", params.FurthestDistanceFromCamera, center)
	}
}

func TestLightSetHashedByInfluence(t *testing.T) {
	ctx := NewContext()
	camera := frontCamera()

	root := NewNode(ctx)
	near := NewLight(ctx, LightTypePoint)
	near.AttenuationEnd = 5
	far := NewLight(ctx, LightTypePoint)
	far.AttenuationEnd = 5
	far.Position = mgl32.Vec3{0, 0, 100}
	root.AddLight(near)
	root.AddLight(far)

	n := NewNode(ctx)
	n.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	root.AddChild(n)

	runSortPass(root, camera)

	want := hashLights([]*Light{near})
	if n.sortKeys[0].LightsHash != want {
		t.Fatalf("lights hash = %08x, want %08x (near light only)", n.sortKeys[0].LightsHash, want)
	}
}

func TestLightMaskExcludes(t *testing.T) {
	ctx := NewContext()
	camera := frontCamera()

	root := NewNode(ctx)
	light := NewLight(ctx, LightTypeAmbient)
	light.InfluenceBitMask = 2
	root.AddLight(light)

	n := NewNode(ctx)
	n.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	n.SetLightReceivingBitMask(1)
	root.AddChild(n)

	runSortPass(root, camera)

	if want := hashLights(nil); n.sortKeys[0].LightsHash != want {
		t.Fatalf("masked-out light still hashed")
	}
}

func TestSortKeysDeterministic(t *testing.T) {
	keys := []SortKey{
		{RenderingOrder: 1, Distance: 5, NodeID: 1},
		{RenderingOrder: 0, Distance: 1, NodeID: 2},
		{RenderingOrder: 0, Distance: 9, NodeID: 3},
		{RenderingOrder: 0, Distance: 9, NodeID: 4},
		{RenderingOrder: 0, Distance: 9, NodeID: 4, Element: 1},
		{RenderingOrder: 0, HierarchyID: 1, HierarchyDepth: 1, NodeID: 5},
		{RenderingOrder: 0, HierarchyID: 1, HierarchyDepth: 0, NodeID: 6},
	}

	a := append([]SortKey(nil), keys...)
	SortKeys(a)

	// Reversed input must land in the same order.
	b := make([]SortKey, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		b = append(b, keys[i])
	}
	SortKeys(b)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order depends on input permutation at %d: %+v vs %+v", i, a[i], b[i])
		}
	}

	// Explicit rendering order beats distance.
	if a[len(a)-1].RenderingOrder != 1 {
		t.Fatalf("rendering order 1 not last: %+v", a[len(a)-1])
	}
	// Within a hierarchy, ancestors come first.
	for i, key := range a {
		if key.NodeID == 6 {
			if i+1 >= len(a) || a[i+1].NodeID != 5 {
				t.Fatalf("hierarchy depth order broken around index %d", i)
			}
		}
	}
	// Equal order and hierarchy: far before near.
	var dists []float32
	for _, key := range a {
		if key.RenderingOrder == 0 && key.HierarchyID == 0 {
			dists = append(dists, key.Distance)
		}
	}
	for i := 1; i < len(dists); i++ {
		if dists[i] > dists[i-1] {
			t.Fatalf("distances not descending: %v", dists)
		}
	}
}
