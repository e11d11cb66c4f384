package lineage

import (
	"math"
	"sort"

	"github.com/camden-git/familytreebackend/models"
)

const DefaultGenerationSpanYears = 28

// GenerationMap maps a person id to its generation, 0 being the oldest.
type GenerationMap map[string]int

type GenerationOptions struct {
	SpanYears int // assumed years between a parent's and a child's birth
}

// graph is a flat arena of people with parent edges stored as index pairs.
type graph struct {
	people      []models.Person
	index       map[string]int
	children    [][]int
	parents     [][]int
	parentCount []int
	spouses     [][]int
}

func buildGraph(people []models.Person, relationships []models.Relationship) *graph {
	g := &graph{
		people:      people,
		index:       make(map[string]int, len(people)),
		children:    make([][]int, len(people)),
		parents:     make([][]int, len(people)),
		parentCount: make([]int, len(people)),
		spouses:     make([][]int, len(people)),
	}
	for i, p := range people {
		if _, dup := g.index[p.ID]; !dup {
			g.index[p.ID] = i
		}
	}
	seen := make(map[[2]int]bool)
	for _, rel := range relationships {
		r := rel.Normalized()
		from, okFrom := g.index[r.FromID]
		to, okTo := g.index[r.ToID]
		if !okFrom || !okTo || from == to {
			continue
		}
		switch r.Type {
		case models.RelationshipParent:
			if seen[[2]int{from, to}] {
				continue
			}
			seen[[2]int{from, to}] = true
			g.children[from] = append(g.children[from], to)
			g.parents[to] = append(g.parents[to], from)
			g.parentCount[to]++
		case models.RelationshipSpouse:
			g.spouses[from] = append(g.spouses[from], to)
			g.spouses[to] = append(g.spouses[to], from)
		}
	}
	return g
}

// AssignGenerations computes a generation for every person.
//
// Roots are people with children but no recorded parents. A breadth-first pass from
// the roots gives roots 0 and each newly reached child its parent's value plus one;
// the first visit wins. A root that married into the tree (a spouse with recorded
// parents, or every child also having a parent with recorded parents) is held back
// and placed afterwards, through the spouse or one level above its children, so an
// in-law does not pull a shared child up a level. People the pass never reaches take an assigned spouse's
// generation, else are placed by birth year against the average birth year of the
// assigned generations. Values are finally shifted so the minimum is 0.
//
// The result depends on the order of people, which fixes root iteration order.
func AssignGenerations(people []models.Person, relationships []models.Relationship, opts GenerationOptions) GenerationMap {
	span := opts.SpanYears
	if span <= 0 {
		span = DefaultGenerationSpanYears
	}
	g := buildGraph(people, relationships)
	n := len(people)

	gen := make([]int, n)
	assigned := make([]bool, n)
	queue := make([]int, 0, n)
	var deferred []int
	for i := 0; i < n; i++ {
		if g.parentCount[i] != 0 || len(g.children[i]) == 0 {
			continue
		}
		if g.marriedIn(i) {
			deferred = append(deferred, i)
			continue
		}
		assigned[i] = true
		queue = append(queue, i)
	}

	for head := 0; ; {
		for ; head < len(queue); head++ {
			cur := queue[head]
			for _, child := range g.children[cur] {
				if assigned[child] {
					continue
				}
				assigned[child] = true
				gen[child] = gen[cur] + 1
				queue = append(queue, child)
			}
		}
		queue = g.alignSpouses(gen, assigned, queue)
		if head < len(queue) {
			continue
		}
		for _, i := range deferred {
			if !assigned[i] {
				gen[i] = g.levelAboveChildren(i, gen, assigned)
				assigned[i] = true
				queue = append(queue, i)
			}
		}
		if head == len(queue) {
			break
		}
	}

	g.placeByBirthYear(gen, assigned, span)

	result := make(GenerationMap, n)
	if n == 0 {
		return result
	}
	lowest := math.MaxInt
	for i := 0; i < n; i++ {
		if gen[i] < lowest {
			lowest = gen[i]
		}
	}
	for i, p := range people {
		if _, exists := result[p.ID]; !exists {
			result[p.ID] = gen[i] - lowest
		}
	}
	return result
}

// marriedIn reports whether i has a spouse with recorded parents, or whether every
// child of i has another parent with recorded parents.
func (g *graph) marriedIn(i int) bool {
	for _, s := range g.spouses[i] {
		if g.parentCount[s] > 0 {
			return true
		}
	}
	if len(g.children[i]) == 0 {
		return false
	}
	for _, child := range g.children[i] {
		rooted := false
		for _, p := range g.parents[child] {
			if p != i && g.parentCount[p] > 0 {
				rooted = true
				break
			}
		}
		if !rooted {
			return false
		}
	}
	return true
}

// levelAboveChildren returns one less than the lowest generation among the assigned
// children of i, or 0 when none is assigned.
func (g *graph) levelAboveChildren(i int, gen []int, assigned []bool) int {
	level, found := 0, false
	for _, child := range g.children[i] {
		if assigned[child] && (!found || gen[child]-1 < level) {
			level, found = gen[child]-1, true
		}
	}
	return level
}

// alignSpouses gives unassigned people the generation of an assigned spouse and
// appends them to the queue, so their own children are reached too.
func (g *graph) alignSpouses(gen []int, assigned []bool, queue []int) []int {
	for changed := true; changed; {
		changed = false
		for i := range g.people {
			if assigned[i] {
				continue
			}
			for _, s := range g.spouses[i] {
				if assigned[s] {
					gen[i] = gen[s]
					assigned[i] = true
					queue = append(queue, i)
					changed = true
					break
				}
			}
		}
	}
	return queue
}

func (g *graph) placeByBirthYear(gen []int, assigned []bool, span int) {
	sums := make(map[int]int)
	counts := make(map[int]int)
	for i, p := range g.people {
		if y := p.Birth.Year(); assigned[i] && y > 0 {
			sums[gen[i]] += y
			counts[gen[i]]++
		}
	}
	levels := make([]int, 0, len(counts))
	for level := range counts {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	for i, p := range g.people {
		if assigned[i] {
			continue
		}
		year := p.Birth.Year()
		if year == 0 || len(levels) == 0 {
			gen[i] = 0
			continue
		}
		nearest, nearestAvg := levels[0], 0.0
		bestDiff := math.Inf(1)
		for _, level := range levels {
			avg := float64(sums[level]) / float64(counts[level])
			if diff := math.Abs(avg - float64(year)); diff < bestDiff {
				bestDiff, nearest, nearestAvg = diff, level, avg
			}
		}
		gen[i] = nearest + int(math.Round((float64(year)-nearestAvg)/float64(span)))
	}
}

// CountGenerations returns how many distinct generations the graph spans.
func CountGenerations(people []models.Person, relationships []models.Relationship) int {
	levels := make(map[int]struct{})
	for _, g := range AssignGenerations(people, relationships, GenerationOptions{}) {
		levels[g] = struct{}{}
	}
	return len(levels)
}
