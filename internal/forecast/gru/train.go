package gru

import (
	"errors"
	"math"
	"math/rand"

	"FinPredict/internal/forecast/dataset"
)

// Report summarizes a completed training run.
type Report struct {
	Epochs      int     `json:"epochs"`
	BestValLoss float64 `json:"best_val_loss"`
	FinalLR     float64 `json:"final_lr"`
}

var errDiverged = errors.New("gru: training diverged")

// Train fits the network on the train partition, monitoring the validation
// partition for early stopping (best weights restored) and learning rate
// reduction. Samples carry scaled sequences and scaled targets.
func (n *Network) Train(train, val []dataset.Sample) (*Report, error) {
	if len(train) == 0 || len(val) == 0 {
		return nil, errors.New("gru: empty training or validation partition")
	}
	rng := rand.New(rand.NewSource(n.Config.Seed + 1))
	opt := newOptimizer(n)
	lr := n.Config.LearningRate

	order := make([]int, len(train))
	for i := range order {
		order[i] = i
	}

	best := math.Inf(1)
	var snap *snapshot
	sinceBest := 0
	sinceReduce := 0
	epochs := 0

	for epoch := 0; epoch < n.Config.Epochs; epoch++ {
		epochs = epoch + 1
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		batch := n.Config.BatchSize
		if batch <= 0 {
			batch = len(train)
		}
		for start := 0; start < len(order); start += batch {
			end := start + batch
			if end > len(order) {
				end = len(order)
			}
			g := newGrads(n)
			for _, idx := range order[start:end] {
				s := train[idx]
				n.backprop(s.Sequence, s.TargetScaled, rng, g)
			}
			g.scale(1 / float64(end-start))
			opt.step(n, g, lr)
		}

		valLoss := n.loss(val)
		if math.IsNaN(valLoss) || math.IsInf(valLoss, 0) {
			return nil, errDiverged
		}
		if valLoss < best-1e-9 {
			best = valLoss
			snap = n.capture()
			sinceBest = 0
			sinceReduce = 0
			continue
		}
		sinceBest++
		sinceReduce++
		if sinceBest >= n.Config.Patience {
			break
		}
		if sinceReduce >= n.Config.LRPatience && lr > n.Config.MinLR {
			lr *= n.Config.LRFactor
			if lr < n.Config.MinLR {
				lr = n.Config.MinLR
			}
			sinceReduce = 0
		}
	}

	if snap != nil {
		n.restore(snap)
	}
	n.Trained = true
	return &Report{Epochs: epochs, BestValLoss: best, FinalLR: lr}, nil
}

func (n *Network) loss(samples []dataset.Sample) float64 {
	sum := 0.0
	for _, s := range samples {
		d := n.Predict(s.Sequence) - s.TargetScaled
		sum += d * d
	}
	return sum / float64(len(samples))
}

// backprop accumulates gradients for one sample into g. Inverted dropout is
// applied on the layer-1 hidden sequence during training only.
func (n *Network) backprop(xs [][]float64, target float64, rng *rand.Rand, g *grads) {
	h1, st1 := n.L1.forward(xs)
	T := len(h1)

	keep := 1 - n.Config.Dropout
	masks := make([][]float64, T)
	dropped := make([][]float64, T)
	for t := 0; t < T; t++ {
		masks[t] = make([]float64, len(h1[t]))
		dropped[t] = make([]float64, len(h1[t]))
		for j := range h1[t] {
			if keep >= 1 || rng.Float64() < keep {
				masks[t][j] = 1 / keep
				dropped[t][j] = h1[t][j] / keep
			}
		}
	}

	h2, st2 := n.L2.forward(dropped)
	last := h2[T-1]

	dense := make([]float64, n.Config.Dense)
	act := make([]float64, n.Config.Dense)
	for j := 0; j < n.Config.Dense; j++ {
		a := n.B1[j]
		for i := range last {
			a += n.W1[i][j] * last[i]
		}
		act[j] = a
		dense[j] = relu(a)
	}
	y := n.B2
	for j, d := range dense {
		y += n.W2[j] * d
	}

	dy := 2 * (y - target)
	g.b2 += dy
	dDense := make([]float64, n.Config.Dense)
	for j := range dense {
		g.w2[j] += dy * dense[j]
		if act[j] > 0 {
			dDense[j] = dy * n.W2[j]
		}
	}
	dLast := make([]float64, len(last))
	for j := range dDense {
		g.b1[j] += dDense[j]
		for i := range last {
			g.w1[i][j] += dDense[j] * last[i]
			dLast[i] += n.W1[i][j] * dDense[j]
		}
	}

	incoming2 := make([][]float64, T)
	incoming2[T-1] = dLast
	dX2 := n.L2.backward(dropped, st2, incoming2, g.l2)

	incoming1 := make([][]float64, T)
	for t := 0; t < T; t++ {
		d := make([]float64, len(dX2[t]))
		for j := range d {
			d[j] = dX2[t][j] * masks[t][j]
		}
		incoming1[t] = d
	}
	n.L1.backward(xs, st1, incoming1, g.l1)
}

// backward runs truncated-free BPTT over the full sequence. incoming holds
// external gradients per timestep (nil entries mean zero). Returns the
// gradient with respect to each input vector.
func (l *layer) backward(xs [][]float64, st *layerState, incoming [][]float64, g *layerGrads) [][]float64 {
	T := len(xs)
	dX := make([][]float64, T)
	dhNext := make([]float64, l.Hidden)

	for t := T - 1; t >= 0; t-- {
		x := xs[t]
		z, r, hhat := st.z[t], st.r[t], st.hhat[t]
		var hPrev []float64
		if t > 0 {
			hPrev = st.h[t-1]
		} else {
			hPrev = make([]float64, l.Hidden)
		}

		dh := make([]float64, l.Hidden)
		copy(dh, dhNext)
		if incoming[t] != nil {
			for j := range dh {
				dh[j] += incoming[t][j]
			}
		}

		dz := make([]float64, l.Hidden)
		dhhat := make([]float64, l.Hidden)
		dhPrev := make([]float64, l.Hidden)
		for j := 0; j < l.Hidden; j++ {
			dz[j] = dh[j] * (hhat[j] - hPrev[j]) * z[j] * (1 - z[j])
			dhhat[j] = dh[j] * z[j] * (1 - hhat[j]*hhat[j])
			dhPrev[j] = dh[j] * (1 - z[j])
		}

		// candidate path: Uh sees r ⊙ hPrev
		dGate := make([]float64, l.Hidden) // Uh^T dhhat
		for i := 0; i < l.Hidden; i++ {
			s := 0.0
			for j := 0; j < l.Hidden; j++ {
				s += l.Uh[i][j] * dhhat[j]
			}
			dGate[i] = s
		}
		dr := make([]float64, l.Hidden)
		for i := 0; i < l.Hidden; i++ {
			dr[i] = dGate[i] * hPrev[i] * r[i] * (1 - r[i])
			dhPrev[i] += dGate[i] * r[i]
		}

		for j := 0; j < l.Hidden; j++ {
			g.bz[j] += dz[j]
			g.br[j] += dr[j]
			g.bh[j] += dhhat[j]
			for i := range x {
				g.wz[i][j] += x[i] * dz[j]
				g.wr[i][j] += x[i] * dr[j]
				g.wh[i][j] += x[i] * dhhat[j]
			}
			for i := 0; i < l.Hidden; i++ {
				g.uz[i][j] += hPrev[i] * dz[j]
				g.ur[i][j] += hPrev[i] * dr[j]
				g.uh[i][j] += (r[i] * hPrev[i]) * dhhat[j]
			}
		}

		for i := 0; i < l.Hidden; i++ {
			s := 0.0
			for j := 0; j < l.Hidden; j++ {
				s += l.Uz[i][j]*dz[j] + l.Ur[i][j]*dr[j]
			}
			dhPrev[i] += s
		}

		dx := make([]float64, len(x))
		for i := range x {
			s := 0.0
			for j := 0; j < l.Hidden; j++ {
				s += l.Wz[i][j]*dz[j] + l.Wr[i][j]*dr[j] + l.Wh[i][j]*dhhat[j]
			}
			dx[i] = s
		}
		dX[t] = dx
		dhNext = dhPrev
	}
	return dX
}
