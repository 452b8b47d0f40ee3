package tendon

import (
	"math"
	"sort"
	"sync"

	"github.com/akmonengine/tendon/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// CellKey - Coordonnées d'une cellule dans l'espace 3D
type CellKey struct {
	X, Y, Z int
}

// Cell - Conteneur d'indices de colliders dans une cellule
type Cell struct {
	colliderIndices []int
}

// Pair - Paire de colliders potentiellement en collision, A before B in
// collider order.
type Pair struct {
	A *Collider
	B *Collider
}

// SpatialGrid - Grille spatiale uniforme avec hashing pour broad phase.
// Only bounded colliders are inserted; unbounded ones (planes) are paired
// against every collider by FindPairsParallel.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	// maxCellsPerAxis caps the cells a huge box spans
	maxCellsPerAxis int
}

// ============================================================================
// Constructeur
// ============================================================================

// NewSpatialGrid - Crée une nouvelle grille spatiale
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].colliderIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize:        cellSize,
		cells:           cells,
		cellMask:        numCells - 1,
		maxCellsPerAxis: 64,
	}
}

// nextPowerOfTwo - Arrondit à la puissance de 2 supérieure
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

// Insert - Insère un collider dans toutes les cellules qu'il occupe
func (sg *SpatialGrid) Insert(colliderIndex int, collider *Collider) {
	sg.eachCell(collider, func(cellIdx int) {
		cell := &sg.cells[cellIdx]
		// a collider spanning aliased cells is inserted once per cell
		if n := len(cell.colliderIndices); n > 0 && cell.colliderIndices[n-1] == colliderIndex {
			return
		}
		cell.colliderIndices = append(cell.colliderIndices, colliderIndex)
	})
}

func (sg *SpatialGrid) eachCell(collider *Collider, fn func(cellIdx int)) {
	minCell := sg.worldToCell(collider.aabb.Min)
	maxCell := sg.worldToCell(collider.aabb.Max)
	maxCell.X = min(maxCell.X, minCell.X+sg.maxCellsPerAxis)
	maxCell.Y = min(maxCell.Y, minCell.Y+sg.maxCellsPerAxis)
	maxCell.Z = min(maxCell.Z, minCell.Z+sg.maxCellsPerAxis)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				fn(sg.hashCell(CellKey{x, y, z}))
			}
		}
	}
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].colliderIndices = sg.cells[i].colliderIndices[:0]
	}
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].colliderIndices) > 1 {
			sort.Ints(sg.cells[i].colliderIndices)
		}
	}
}

// FindPairs - Version séquentielle
func (sg *SpatialGrid) FindPairs(colliders []*Collider) []Pair {
	pairs := make([]Pair, 0, len(colliders)/2)
	for pair := range sg.FindPairsParallel(colliders, 1) {
		pairs = append(pairs, pair)
	}
	return pairs
}

// FindPairsParallel - Version parallèle retournant un channel.
// colliders must have been inserted by index beforehand, except the
// unbounded ones.
func (sg *SpatialGrid) FindPairsParallel(colliders []*Collider, numWorkers int) <-chan Pair {
	var wg sync.WaitGroup
	pairsChan := make(chan Pair, numWorkers*10)

	collidersPerWorker := len(colliders) / numWorkers
	if collidersPerWorker == 0 {
		collidersPerWorker = 1
	}

	clearSeen := make([]bool, len(colliders))
	for w := 0; w < numWorkers; w++ {
		startIdx := w * collidersPerWorker
		endIdx := startIdx + collidersPerWorker
		if w == numWorkers-1 {
			endIdx = len(colliders)
		}
		if startIdx >= len(colliders) {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			seen := make([]bool, len(colliders))
			for colliderIdx := start; colliderIdx < end; colliderIdx++ {
				colliderA := colliders[colliderIdx]

				// Unbounded: test against everything after it
				if !colliderA.aabb.IsBounded() {
					for otherIdx := colliderIdx + 1; otherIdx < len(colliders); otherIdx++ {
						colliderB := colliders[otherIdx]
						if canCollide(colliderA, colliderB) {
							pairsChan <- Pair{A: colliderA, B: colliderB}
						}
					}
					continue
				}

				copy(seen, clearSeen)
				sg.eachCell(colliderA, func(cellIdx int) {
					// Tester contre tous les colliders dans cette cellule
					for _, otherIdx := range sg.cells[cellIdx].colliderIndices {
						// Avoid duplicates
						if otherIdx <= colliderIdx || seen[otherIdx] {
							continue
						}
						seen[otherIdx] = true

						colliderB := colliders[otherIdx]
						if !canCollide(colliderA, colliderB) {
							continue
						}
						if colliderA.aabb.Overlaps(colliderB.aabb) {
							pairsChan <- Pair{A: colliderA, B: colliderB}
						}
					}
				})

				// unbounded colliders listed after A
				for otherIdx := colliderIdx + 1; otherIdx < len(colliders); otherIdx++ {
					colliderB := colliders[otherIdx]
					if colliderB.aabb.IsBounded() {
						continue
					}
					if canCollide(colliderA, colliderB) {
						pairsChan <- Pair{A: colliderA, B: colliderB}
					}
				}
			}
		}(startIdx, endIdx)
	}

	go func() {
		wg.Wait()
		close(pairsChan)
	}()

	return pairsChan
}

// canCollide filters the pairs the narrow phase never needs to see.
func canCollide(a, b *Collider) bool {
	if a.body == b.body {
		return false
	}
	if !a.multibody.IsZero() && a.multibody == b.multibody {
		return false
	}
	if a.body.BodyType == actor.BodyTypeStatic && b.body.BodyType == actor.BodyTypeStatic {
		return false
	}
	// kinematic bodies never sleep: a moving one still meets sleeping bodies
	return !(a.body.IsSleeping && b.body.IsSleeping)
}

// worldToCell - Convertit une position monde en coordonnées de cellule
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell - Hash une cellule vers un index dans l'array
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
