package gru

import (
	"math"
	"math/rand"
)

// Config holds the temporal model hyperparameters.
type Config struct {
	Hidden       int     `json:"hidden" yaml:"hidden"`
	Dense        int     `json:"dense" yaml:"dense"`
	Dropout      float64 `json:"dropout" yaml:"dropout"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	Epochs       int     `json:"epochs" yaml:"epochs"`
	BatchSize    int     `json:"batch_size" yaml:"batch_size"`
	Patience     int     `json:"patience" yaml:"patience"`
	LRPatience   int     `json:"lr_patience" yaml:"lr_patience"`
	LRFactor     float64 `json:"lr_factor" yaml:"lr_factor"`
	MinLR        float64 `json:"min_lr" yaml:"min_lr"`
	Seed         int64   `json:"seed" yaml:"seed"`
}

// DefaultConfig mirrors the production training setup: two GRU layers, the
// second at half width, a small dense head, MSE objective.
func DefaultConfig() Config {
	return Config{
		Hidden:       128,
		Dense:        32,
		Dropout:      0.2,
		LearningRate: 1e-3,
		Epochs:       100,
		BatchSize:    32,
		Patience:     10,
		LRPatience:   5,
		LRFactor:     0.5,
		MinLR:        1e-6,
		Seed:         42,
	}
}

// layer is one GRU layer: update gate z, reset gate r, candidate state.
type layer struct {
	In     int         `json:"in"`
	Hidden int         `json:"hidden"`
	Wz     [][]float64 `json:"wz"`
	Uz     [][]float64 `json:"uz"`
	Bz     []float64   `json:"bz"`
	Wr     [][]float64 `json:"wr"`
	Ur     [][]float64 `json:"ur"`
	Br     []float64   `json:"br"`
	Wh     [][]float64 `json:"wh"`
	Uh     [][]float64 `json:"uh"`
	Bh     []float64   `json:"bh"`
}

// Network is a 2-layer GRU regressor with a dense head, trained on scaled
// sequences against a scaled target. The struct is JSON-serializable; the
// registry persists it as-is.
type Network struct {
	Config    Config      `json:"config"`
	InputSize int         `json:"input_size"`
	L1        *layer      `json:"l1"`
	L2        *layer      `json:"l2"`
	W1        [][]float64 `json:"w1"` // hidden2 x dense
	B1        []float64   `json:"b1"`
	W2        []float64   `json:"w2"` // dense
	B2        float64     `json:"b2"`
	Trained   bool        `json:"trained"`
}

// New builds an untrained network with Glorot-style small random weights.
func New(inputSize int, cfg Config) *Network {
	rng := rand.New(rand.NewSource(cfg.Seed))
	h1 := cfg.Hidden
	h2 := cfg.Hidden / 2
	if h2 < 1 {
		h2 = 1
	}
	n := &Network{
		Config:    cfg,
		InputSize: inputSize,
		L1:        newLayer(inputSize, h1, rng),
		L2:        newLayer(h1, h2, rng),
		W1:        randMat(h2, cfg.Dense, rng),
		B1:        make([]float64, cfg.Dense),
		W2:        randVec(cfg.Dense, rng),
	}
	return n
}

func newLayer(in, hidden int, rng *rand.Rand) *layer {
	return &layer{
		In:     in,
		Hidden: hidden,
		Wz:     randMat(in, hidden, rng),
		Uz:     randMat(hidden, hidden, rng),
		Bz:     make([]float64, hidden),
		Wr:     randMat(in, hidden, rng),
		Ur:     randMat(hidden, hidden, rng),
		Br:     make([]float64, hidden),
		Wh:     randMat(in, hidden, rng),
		Uh:     randMat(hidden, hidden, rng),
		Bh:     make([]float64, hidden),
	}
}

func randMat(rows, cols int, rng *rand.Rand) [][]float64 {
	scale := math.Sqrt(2.0 / float64(rows+cols))
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = (rng.Float64()*2 - 1) * scale
		}
	}
	return m
}

func randVec(n int, rng *rand.Rand) []float64 {
	scale := math.Sqrt(2.0 / float64(n+1))
	v := make([]float64, n)
	for i := range v {
		v[i] = (rng.Float64()*2 - 1) * scale
	}
	return v
}

// layerState records per-timestep activations needed by backprop.
type layerState struct {
	z, r, hhat, h [][]float64 // T x hidden
}

// forward runs one layer over a sequence, returning the hidden sequence and
// the cached activations.
func (l *layer) forward(xs [][]float64) ([][]float64, *layerState) {
	T := len(xs)
	st := &layerState{
		z:    make([][]float64, T),
		r:    make([][]float64, T),
		hhat: make([][]float64, T),
		h:    make([][]float64, T),
	}
	hPrev := make([]float64, l.Hidden)
	for t := 0; t < T; t++ {
		x := xs[t]
		z := make([]float64, l.Hidden)
		r := make([]float64, l.Hidden)
		hhat := make([]float64, l.Hidden)
		h := make([]float64, l.Hidden)
		for j := 0; j < l.Hidden; j++ {
			az := l.Bz[j]
			ar := l.Br[j]
			for i := range x {
				az += l.Wz[i][j] * x[i]
				ar += l.Wr[i][j] * x[i]
			}
			for i := 0; i < l.Hidden; i++ {
				az += l.Uz[i][j] * hPrev[i]
				ar += l.Ur[i][j] * hPrev[i]
			}
			z[j] = sigmoid(az)
			r[j] = sigmoid(ar)
		}
		for j := 0; j < l.Hidden; j++ {
			ah := l.Bh[j]
			for i := range x {
				ah += l.Wh[i][j] * x[i]
			}
			for i := 0; i < l.Hidden; i++ {
				ah += l.Uh[i][j] * (r[i] * hPrev[i])
			}
			hhat[j] = math.Tanh(ah)
			h[j] = (1-z[j])*hPrev[j] + z[j]*hhat[j]
		}
		st.z[t], st.r[t], st.hhat[t], st.h[t] = z, r, hhat, h
		hPrev = h
	}
	return st.h, st
}

// Predict runs a single scaled sequence through the network without
// dropout and returns the scaled point prediction.
func (n *Network) Predict(sequence [][]float64) float64 {
	h1, _ := n.L1.forward(sequence)
	h2, _ := n.L2.forward(h1)
	return n.head(h2[len(h2)-1])
}

func (n *Network) head(h []float64) float64 {
	dense := make([]float64, n.Config.Dense)
	for j := 0; j < n.Config.Dense; j++ {
		a := n.B1[j]
		for i := range h {
			a += n.W1[i][j] * h[i]
		}
		dense[j] = relu(a)
	}
	y := n.B2
	for j, d := range dense {
		y += n.W2[j] * d
	}
	return y
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}
