package software

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// maxTrianglesPerLeaf is the threshold for splitting BVH nodes.
const maxTrianglesPerLeaf = 4

// bvhNode is one entry of the flattened hierarchy. The first child of an
// internal node is stored right after it; second points to the other one.
type bvhNode struct {
	bounds AABB
	second uint32
	first  uint32 // leaf: offset into bvh.prims
	count  uint32 // leaf: number of triangles, 0 for internal nodes
}

// bvh is a bounding volume hierarchy over a triangle soup.
type bvh struct {
	nodes    []bvhNode
	prims    []int32 // triangle ids, grouped by leaf
	vertices []mgl32.Vec3
	indices  [][3]int32
	normals  []mgl32.Vec3
	faces    []faceInfo
}

type faceInfo struct {
	front, back int32
}

type buildItem struct {
	id       int32
	bounds   AABB
	centroid mgl32.Vec3
}

// newBVH builds the hierarchy. Triangle bounds are padded by a small fraction
// of the scene size, so that axis-aligned triangles keep a non-empty slab.
func newBVH(vertices []mgl32.Vec3, indices [][3]int32, faces []faceInfo) *bvh {
	b := &bvh{
		vertices: vertices,
		indices:  indices,
		faces:    faces,
		normals:  make([]mgl32.Vec3, len(indices)),
	}
	if len(indices) == 0 {
		return b
	}

	scene := emptyAABB()
	for _, v := range vertices {
		scene = scene.Grow(v)
	}
	extent := scene.Max.Sub(scene.Min)
	pad := 1e-6*max(extent[0], extent[1], extent[2]) + 1e-12

	items := make([]buildItem, len(indices))
	for i, tri := range indices {
		v0, v1, v2 := vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]
		bounds := emptyAABB().Grow(v0).Grow(v1).Grow(v2).Pad(pad)
		items[i] = buildItem{id: int32(i), bounds: bounds, centroid: bounds.Center()}
		b.normals[i] = triangleNormal(v0, v1, v2)
	}

	b.nodes = make([]bvhNode, 0, 2*len(items)/maxTrianglesPerLeaf+1)
	b.prims = make([]int32, 0, len(items))
	b.build(items)

	return b
}

func (b *bvh) build(items []buildItem) uint32 {
	bounds := emptyAABB()
	centroids := emptyAABB()
	for _, it := range items {
		bounds = bounds.Union(it.bounds)
		centroids = centroids.Grow(it.centroid)
	}

	idx := uint32(len(b.nodes))
	b.nodes = append(b.nodes, bvhNode{bounds: bounds})

	axis := centroids.LongestAxis()
	if len(items) <= maxTrianglesPerLeaf || centroids.Max[axis] <= centroids.Min[axis] {
		b.nodes[idx].first = uint32(len(b.prims))
		b.nodes[idx].count = uint32(len(items))
		for _, it := range items {
			b.prims = append(b.prims, it.id)
		}
		return idx
	}

	// Median split along the longest centroid axis
	sort.Slice(items, func(i, j int) bool {
		return items[i].centroid[axis] < items[j].centroid[axis]
	})
	mid := len(items) / 2

	b.build(items[:mid])
	second := b.build(items[mid:])
	b.nodes[idx].second = second

	return idx
}

// originSide returns the owner of triangle id on the side a ray along dir
// comes from.
func (b *bvh) originSide(id int32, dir mgl32.Vec3) int32 {
	if dir.Dot(b.normals[id]) < 0 {
		return b.faces[id].front
	}
	return b.faces[id].back
}

// traverse calls hit for every triangle crossed by origin + t*dir with
// tMin <= t <= limit. limit starts at tMax and is replaced by the value each hit
// call returns, which prunes the rest of the traversal. Triangles are not
// visited in t order.
func (b *bvh) traverse(origin, dir mgl32.Vec3, tMin, tMax float32, hit func(id int32, t float32) float32) {
	if len(b.nodes) == 0 {
		return
	}

	invDir := mgl32.Vec3{1 / dir[0], 1 / dir[1], 1 / dir[2]}
	limit := tMax

	var stack [64]uint32
	stack[0] = 0
	n := 1

	for n > 0 {
		n--
		ni := stack[n]
		node := &b.nodes[ni]
		if !node.bounds.HitRay(origin, invDir, tMin, limit) {
			continue
		}

		if node.count > 0 {
			for _, id := range b.prims[node.first : node.first+node.count] {
				tri := b.indices[id]
				t, ok := intersectTriangle(origin, dir, b.vertices[tri[0]], b.vertices[tri[1]], b.vertices[tri[2]], tMin)
				if ok && t <= limit {
					limit = hit(id, t)
				}
			}
			continue
		}

		stack[n] = node.second
		stack[n+1] = ni + 1
		n += 2
	}
}
