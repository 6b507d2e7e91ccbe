package classifier

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// ForestConfig controls forest growth.
type ForestConfig struct {
	Trees    int
	MaxDepth int
	Seed     int64
}

// Node is one flattened tree node. Leaves have Left == -1.
type Node struct {
	Feature   int        `json:"f"`
	Threshold float64    `json:"t"`
	Left      int        `json:"l"`
	Right     int        `json:"r"`
	Proba     [2]float64 `json:"p"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a bagged ensemble of binary CART trees using weighted Gini impurity.
type Forest struct {
	Trees       []Tree    `json:"trees"`
	Importances []float64 `json:"importances"`
	Width       int       `json:"width"`
}

var errEmptyTraining = errors.New("empty training set")

// FitForest grows cfg.Trees trees on bootstrap samples of (X, y) with balanced
// class weights. Each tree draws sqrt(width) candidate features per split.
// Results depend only on cfg.Seed and the data.
func FitForest(ctx context.Context, X [][]float64, y []int, cfg ForestConfig) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errEmptyTraining
	}
	width := len(X[0])
	classWeight := balancedWeights(y)

	master := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]Tree, cfg.Trees)
	imps := make([][]float64, cfg.Trees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := &builder{
				X: X, y: y, classWeight: classWeight,
				maxDepth: cfg.MaxDepth,
				mtry:     max(1, int(math.Sqrt(float64(width)))),
				rng:      rand.New(rand.NewSource(seeds[i])),
				imp:      make([]float64, width),
			}
			trees[i] = b.grow()
			imps[i] = b.imp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := make([]float64, width)
	for _, imp := range imps {
		if s := floats.Sum(imp); s > 0 {
			floats.AddScaled(total, 1/s, imp)
		}
	}
	if s := floats.Sum(total); s > 0 {
		floats.Scale(1/s, total)
	}
	return &Forest{Trees: trees, Importances: total, Width: width}, nil
}

// PredictProba returns the mean class distribution over all trees.
func (f *Forest) PredictProba(x []float64) [2]float64 {
	var p [2]float64
	if len(f.Trees) == 0 {
		return p
	}
	for _, t := range f.Trees {
		leaf := t.leaf(x)
		p[0] += leaf[0]
		p[1] += leaf[1]
	}
	n := float64(len(f.Trees))
	p[0] /= n
	p[1] /= n
	return p
}

// Predict returns the most probable class and its probability.
// Ties resolve to class 0.
func (f *Forest) Predict(x []float64) (int, float64) {
	p := f.PredictProba(x)
	if p[1] > p[0] {
		return 1, p[1]
	}
	return 0, p[0]
}

func (t Tree) leaf(x []float64) [2]float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Proba
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func balancedWeights(y []int) [2]float64 {
	var counts [2]float64
	for _, c := range y {
		counts[c]++
	}
	var w [2]float64
	n := float64(len(y))
	for c := range counts {
		if counts[c] > 0 {
			w[c] = n / (2 * counts[c])
		}
	}
	return w
}

type builder struct {
	X           [][]float64
	y           []int
	classWeight [2]float64
	maxDepth    int
	mtry        int
	rng         *rand.Rand
	imp         []float64
	nodes       []Node
}

func (b *builder) grow() Tree {
	n := len(b.X)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = b.rng.Intn(n)
	}
	b.split(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *builder) dist(idx []int) [2]float64 {
	var d [2]float64
	for _, i := range idx {
		d[b.y[i]] += b.classWeight[b.y[i]]
	}
	return d
}

func gini(d [2]float64) float64 {
	t := d[0] + d[1]
	if t == 0 {
		return 0
	}
	p0, p1 := d[0]/t, d[1]/t
	return 1 - p0*p0 - p1*p1
}

// split appends the subtree for idx and returns its node index.
func (b *builder) split(idx []int, depth int) int {
	d := b.dist(idx)
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Proba: normalize(d)})

	parentImp := gini(d)
	if parentImp == 0 || len(idx) < 2 || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return self
	}

	feat, thr, gain, ok := b.bestSplit(idx, d, parentImp)
	if !ok {
		return self
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.imp[feat] += gain

	l := b.split(left, depth+1)
	r := b.split(right, depth+1)
	b.nodes[self].Feature = feat
	b.nodes[self].Threshold = thr
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

// bestSplit scans random features for the largest weighted impurity decrease.
// It inspects mtry features, and keeps going past mtry until one valid split exists.
func (b *builder) bestSplit(idx []int, parent [2]float64, parentImp float64) (int, float64, float64, bool) {
	width := len(b.X[0])
	parentW := parent[0] + parent[1]

	bestFeat, bestThr, bestGain := -1, 0.0, 0.0
	order := make([]int, len(idx))
	for k, f := range b.rng.Perm(width) {
		if k >= b.mtry && bestFeat >= 0 {
			break
		}
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })

		var left [2]float64
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			left[b.y[i]] += b.classWeight[b.y[i]]
			v, next := b.X[i][f], b.X[order[pos+1]][f]
			if v == next {
				continue
			}
			right := [2]float64{parent[0] - left[0], parent[1] - left[1]}
			lw, rw := left[0]+left[1], right[0]+right[1]
			gain := parentW*parentImp - lw*gini(left) - rw*gini(right)
			if gain > bestGain {
				bestFeat, bestThr, bestGain = f, (v+next)/2, gain
			}
		}
	}
	return bestFeat, bestThr, bestGain, bestFeat >= 0
}

func normalize(d [2]float64) [2]float64 {
	t := d[0] + d[1]
	if t == 0 {
		return [2]float64{0.5, 0.5}
	}
	return [2]float64{d[0] / t, d[1] / t}
}
