package feather2d

import (
	"cmp"
	"math"
	"slices"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// CellKey is the integer coordinate of a grid cell
type CellKey struct {
	X, Y int
}

// Cell holds the indices of the bodies overlapping it
type Cell struct {
	bodyIndices []int
}

// Pair is a couple of bodies whose bounding boxes overlap.
// IndexA < IndexB, both index the slice given to FindPairs.
type Pair struct {
	IndexA, IndexB int
	BodyA, BodyB   *actor.RigidBody
}

// SpatialGrid is a uniform hashed grid used as broad phase.
// Half-planes are kept aside and tested against every other body.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	planes []int
}

// NewSpatialGrid creates a grid with square cells of the given size.
// The number of hash buckets is rounded up to a power of two.
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

func isPlane(body *actor.RigidBody) bool {
	return body.Shape != nil && body.Shape.Type() == actor.ShapeTypePlane
}

// Insert registers a body in every cell its bounding box covers
func (sg *SpatialGrid) Insert(bodyIndex int, body *actor.RigidBody) {
	if body.Shape == nil {
		return
	}
	if isPlane(body) {
		sg.planes = append(sg.planes, bodyIndex)
		return
	}

	aabb := body.Shape.GetAABB()
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			cellIdx := sg.hashCell(CellKey{x, y})
			sg.cells[cellIdx].bodyIndices = append(sg.cells[cellIdx].bodyIndices, bodyIndex)
		}
	}
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}
	sg.planes = sg.planes[:0]
}

// Rebuild clears the grid and inserts every body, using its position in the slice as index
func (sg *SpatialGrid) Rebuild(bodies []*actor.RigidBody) {
	sg.Clear()
	for i, body := range bodies {
		sg.Insert(i, body)
	}
}

// shouldCollide filters pairs that can never produce a useful contact
func shouldCollide(bodyA, bodyB *actor.RigidBody) bool {
	if bodyA.BodyType != actor.BodyTypeDynamic && bodyB.BodyType != actor.BodyTypeDynamic {
		return false
	}
	if bodyA.IsSleeping && bodyB.IsSleeping {
		return false
	}

	return true
}

func makePair(bodies []*actor.RigidBody, i, j int) Pair {
	if j < i {
		i, j = j, i
	}
	return Pair{IndexA: i, IndexB: j, BodyA: bodies[i], BodyB: bodies[j]}
}

// findPairsRange collects the pairs whose lowest index lies in [start, end).
// seen is a scratch buffer of len(bodies) entries.
func (sg *SpatialGrid) findPairsRange(bodies []*actor.RigidBody, start, end int, seen []int, pairs []Pair) []Pair {
	for bodyIdx := start; bodyIdx < end; bodyIdx++ {
		bodyA := bodies[bodyIdx]
		if bodyA.Shape == nil || isPlane(bodyA) {
			continue
		}
		aabbA := bodyA.Shape.GetAABB()
		stamp := bodyIdx + 1

		minCell := sg.worldToCell(aabbA.Min)
		maxCell := sg.worldToCell(aabbA.Max)

		for x := minCell.X; x <= maxCell.X; x++ {
			for y := minCell.Y; y <= maxCell.Y; y++ {
				cellIdx := sg.hashCell(CellKey{x, y})

				for _, otherIdx := range sg.cells[cellIdx].bodyIndices {
					// Each pair is reported once, by its lowest index
					if otherIdx <= bodyIdx || seen[otherIdx] == stamp {
						continue
					}
					seen[otherIdx] = stamp

					bodyB := bodies[otherIdx]
					if !shouldCollide(bodyA, bodyB) {
						continue
					}
					if aabbA.Overlaps(bodyB.Shape.GetAABB()) {
						pairs = append(pairs, makePair(bodies, bodyIdx, otherIdx))
					}
				}
			}
		}
	}

	return pairs
}

func (sg *SpatialGrid) planePairs(bodies []*actor.RigidBody, pairs []Pair) []Pair {
	for _, planeIdx := range sg.planes {
		plane := bodies[planeIdx]
		planeBox := plane.Shape.GetAABB()

		for i, body := range bodies {
			if i == planeIdx || body.Shape == nil || isPlane(body) {
				continue
			}
			if !shouldCollide(plane, body) {
				continue
			}
			if planeBox.Overlaps(body.Shape.GetAABB()) {
				pairs = append(pairs, makePair(bodies, planeIdx, i))
			}
		}
	}

	return pairs
}

func comparePairs(a, b Pair) int {
	if c := cmp.Compare(a.IndexA, b.IndexA); c != 0 {
		return c
	}
	return cmp.Compare(a.IndexB, b.IndexB)
}

// FindPairs returns every overlapping pair once, sorted by indices
func (sg *SpatialGrid) FindPairs(bodies []*actor.RigidBody) []Pair {
	seen := make([]int, len(bodies))
	pairs := sg.findPairsRange(bodies, 0, len(bodies), seen, make([]Pair, 0, len(bodies)/2))
	pairs = sg.planePairs(bodies, pairs)
	slices.SortFunc(pairs, comparePairs)

	return pairs
}

type pairChunk struct {
	start, end int
	pairs      []Pair
}

// FindPairsParallel splits the bodies between workers.
// The result is the same as FindPairs.
func (sg *SpatialGrid) FindPairsParallel(bodies []*actor.RigidBody, numWorkers int) []Pair {
	numWorkers = max(numWorkers, 1)
	if numWorkers == 1 || len(bodies) < 2*numWorkers {
		return sg.FindPairs(bodies)
	}

	chunkSize := (len(bodies) + numWorkers - 1) / numWorkers
	chunks := make([]*pairChunk, 0, numWorkers)
	for start := 0; start < len(bodies); start += chunkSize {
		chunks = append(chunks, &pairChunk{start: start, end: min(start+chunkSize, len(bodies))})
	}

	task(numWorkers, chunks, func(chunk *pairChunk) {
		seen := make([]int, len(bodies))
		chunk.pairs = sg.findPairsRange(bodies, chunk.start, chunk.end, seen, nil)
	})

	var pairs []Pair
	for _, chunk := range chunks {
		pairs = append(pairs, chunk.pairs...)
	}
	pairs = sg.planePairs(bodies, pairs)
	slices.SortFunc(pairs, comparePairs)

	return pairs
}

func (sg *SpatialGrid) worldToCell(pos mgl64.Vec2) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
	}
}

func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663)
	return h & sg.cellMask
}
