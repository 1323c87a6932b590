package gbdt

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// Config holds the boosted-tree hyperparameters.
type Config struct {
	Depth           int     `json:"depth" yaml:"depth"`
	MaxTrees        int     `json:"max_trees" yaml:"max_trees"`
	LearningRate    float64 `json:"learning_rate" yaml:"learning_rate"`
	Subsample       float64 `json:"subsample" yaml:"subsample"`
	ColSample       float64 `json:"col_sample" yaml:"col_sample"`
	EarlyStopRounds int     `json:"early_stop_rounds" yaml:"early_stop_rounds"`
	MinLeaf         int     `json:"min_leaf" yaml:"min_leaf"`
	Seed            int64   `json:"seed" yaml:"seed"`
}

// DefaultConfig matches the production setup: shallow trees, slow learning
// rate, row and column subsampling, validation-based early stopping.
func DefaultConfig() Config {
	return Config{
		Depth:           3,
		MaxTrees:        300,
		LearningRate:    0.05,
		Subsample:       0.6,
		ColSample:       0.8,
		EarlyStopRounds: 25,
		MinLeaf:         5,
		Seed:            42,
	}
}

// node is one tree node. Leaves carry Value; internal nodes route on
// Feature/Threshold with child indexes into the tree's node slice.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Model is a gradient-boosted regression ensemble over flat feature vectors.
// Squared loss, each round fitting a shallow tree to the current residuals.
type Model struct {
	Config  Config `json:"config"`
	Base    float64 `json:"base"`
	Trees   []tree `json:"trees"`
	Trained bool   `json:"trained"`
}

// Report summarizes a completed boosting run.
type Report struct {
	Rounds      int     `json:"rounds"`
	BestValRMSE float64 `json:"best_val_rmse"`
}

func New(cfg Config) *Model {
	return &Model{Config: cfg}
}

// Predict scores a single flat feature vector.
func (m *Model) Predict(x []float64) float64 {
	y := m.Base
	for i := range m.Trees {
		y += m.Config.LearningRate * m.Trees[i].predict(x)
	}
	return y
}

// Train fits the ensemble on the train partition, stopping when validation
// RMSE has not improved for EarlyStopRounds rounds. The ensemble is
// truncated back to the best round.
func (m *Model) Train(trainX [][]float64, trainY []float64, valX [][]float64, valY []float64) (*Report, error) {
	if len(trainX) == 0 || len(valX) == 0 {
		return nil, errors.New("gbdt: empty training or validation partition")
	}
	if len(trainX) != len(trainY) || len(valX) != len(valY) {
		return nil, errors.New("gbdt: feature/target length mismatch")
	}
	rng := rand.New(rand.NewSource(m.Config.Seed))
	nFeatures := len(trainX[0])

	m.Base = mean(trainY)
	m.Trees = m.Trees[:0]

	trainPred := make([]float64, len(trainY))
	valPred := make([]float64, len(valY))
	for i := range trainPred {
		trainPred[i] = m.Base
	}
	for i := range valPred {
		valPred[i] = m.Base
	}

	best := rmse(valPred, valY)
	bestRound := 0
	sinceBest := 0

	residual := make([]float64, len(trainY))
	for round := 0; round < m.Config.MaxTrees; round++ {
		for i := range residual {
			residual[i] = trainY[i] - trainPred[i]
		}

		rows := sampleRows(len(trainX), m.Config.Subsample, rng)
		cols := sampleCols(nFeatures, m.Config.ColSample, rng)

		t := m.buildTree(trainX, residual, rows, cols)
		m.Trees = append(m.Trees, t)

		for i := range trainPred {
			trainPred[i] += m.Config.LearningRate * t.predict(trainX[i])
		}
		for i := range valPred {
			valPred[i] += m.Config.LearningRate * t.predict(valX[i])
		}

		score := rmse(valPred, valY)
		if score < best-1e-12 {
			best = score
			bestRound = round + 1
			sinceBest = 0
		} else {
			sinceBest++
			if sinceBest >= m.Config.EarlyStopRounds {
				break
			}
		}
	}

	m.Trees = m.Trees[:bestRound]
	m.Trained = true
	return &Report{Rounds: bestRound, BestValRMSE: best}, nil
}

// buildTree grows one depth-limited regression tree on the sampled rows and
// columns, leaves holding the mean residual.
func (m *Model) buildTree(x [][]float64, residual []float64, rows []int, cols []int) tree {
	t := tree{}
	m.grow(&t, x, residual, rows, cols, 0)
	return t
}

// grow appends the subtree for rows and returns its node index.
func (m *Model) grow(t *tree, x [][]float64, residual []float64, rows []int, cols []int, depth int) int {
	idx := len(t.Nodes)
	if depth >= m.Config.Depth || len(rows) < 2*m.Config.MinLeaf {
		t.Nodes = append(t.Nodes, node{Leaf: true, Value: meanAt(residual, rows)})
		return idx
	}

	feature, threshold, ok := m.bestSplit(x, residual, rows, cols)
	if !ok {
		t.Nodes = append(t.Nodes, node{Leaf: true, Value: meanAt(residual, rows)})
		return idx
	}

	var left, right []int
	for _, r := range rows {
		if x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	t.Nodes = append(t.Nodes, node{Feature: feature, Threshold: threshold})
	l := m.grow(t, x, residual, left, cols, depth+1)
	r := m.grow(t, x, residual, right, cols, depth+1)
	t.Nodes[idx].Left = l
	t.Nodes[idx].Right = r
	return idx
}

// bestSplit scans the candidate columns for the threshold minimizing total
// squared error, using the sorted prefix-sum trick per feature.
func (m *Model) bestSplit(x [][]float64, residual []float64, rows []int, cols []int) (int, float64, bool) {
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	total := 0.0
	totalSq := 0.0
	for _, r := range rows {
		total += residual[r]
		totalSq += residual[r] * residual[r]
	}
	parentSSE := totalSq - total*total/float64(len(rows))

	order := make([]int, len(rows))
	for _, f := range cols {
		copy(order, rows)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		leftSum := 0.0
		leftSq := 0.0
		for i := 0; i < len(order)-1; i++ {
			r := order[i]
			leftSum += residual[r]
			leftSq += residual[r] * residual[r]

			nl := i + 1
			nr := len(order) - nl
			if nl < m.Config.MinLeaf || nr < m.Config.MinLeaf {
				continue
			}
			// no valid threshold between equal values
			if x[order[i]][f] == x[order[i+1]][f] {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			gain := parentSSE - sse
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = (x[order[i]][f] + x[order[i+1]][f]) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func sampleRows(n int, fraction float64, rng *rand.Rand) []int {
	k := int(math.Round(fraction * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	perm := rng.Perm(n)
	rows := perm[:k]
	sort.Ints(rows)
	return rows
}

func sampleCols(n int, fraction float64, rng *rand.Rand) []int {
	k := int(math.Round(fraction * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	perm := rng.Perm(n)
	cols := perm[:k]
	sort.Ints(cols)
	return cols
}

func mean(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func meanAt(v []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	s := 0.0
	for _, r := range rows {
		s += v[r]
	}
	return s / float64(len(rows))
}

func rmse(pred, want []float64) float64 {
	s := 0.0
	for i := range pred {
		d := pred[i] - want[i]
		s += d * d
	}
	return math.Sqrt(s / float64(len(pred)))
}
