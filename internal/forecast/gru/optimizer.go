package gru

import "math"

type layerGrads struct {
	wz, uz, wr, ur, wh, uh [][]float64
	bz, br, bh             []float64
}

type grads struct {
	l1, l2 *layerGrads
	w1     [][]float64
	b1     []float64
	w2     []float64
	b2     float64
}

func newLayerGrads(l *layer) *layerGrads {
	return &layerGrads{
		wz: zeroMat(l.In, l.Hidden), uz: zeroMat(l.Hidden, l.Hidden),
		wr: zeroMat(l.In, l.Hidden), ur: zeroMat(l.Hidden, l.Hidden),
		wh: zeroMat(l.In, l.Hidden), uh: zeroMat(l.Hidden, l.Hidden),
		bz: make([]float64, l.Hidden),
		br: make([]float64, l.Hidden),
		bh: make([]float64, l.Hidden),
	}
}

func newGrads(n *Network) *grads {
	return &grads{
		l1: newLayerGrads(n.L1),
		l2: newLayerGrads(n.L2),
		w1: zeroMat(len(n.W1), n.Config.Dense),
		b1: make([]float64, n.Config.Dense),
		w2: make([]float64, n.Config.Dense),
	}
}

func (g *grads) scale(f float64) {
	for _, lg := range []*layerGrads{g.l1, g.l2} {
		for _, m := range [][][]float64{lg.wz, lg.uz, lg.wr, lg.ur, lg.wh, lg.uh} {
			scaleMat(m, f)
		}
		scaleVec(lg.bz, f)
		scaleVec(lg.br, f)
		scaleVec(lg.bh, f)
	}
	scaleMat(g.w1, f)
	scaleVec(g.b1, f)
	scaleVec(g.w2, f)
	g.b2 *= f
}

// optimizer is Adam with the standard bias correction.
type optimizer struct {
	m, v *grads
	t    int
}

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

func newOptimizer(n *Network) *optimizer {
	return &optimizer{m: newGrads(n), v: newGrads(n)}
}

func (o *optimizer) step(n *Network, g *grads, lr float64) {
	o.t++
	c1 := 1 - math.Pow(adamBeta1, float64(o.t))
	c2 := 1 - math.Pow(adamBeta2, float64(o.t))

	upd := func(w, gw, mw, vw []float64) {
		for i := range w {
			mw[i] = adamBeta1*mw[i] + (1-adamBeta1)*gw[i]
			vw[i] = adamBeta2*vw[i] + (1-adamBeta2)*gw[i]*gw[i]
			w[i] -= lr * (mw[i] / c1) / (math.Sqrt(vw[i]/c2) + adamEps)
		}
	}
	updMat := func(w, gw, mw, vw [][]float64) {
		for i := range w {
			upd(w[i], gw[i], mw[i], vw[i])
		}
	}

	for _, s := range []struct {
		l        *layer
		g, m, v  *layerGrads
	}{
		{n.L1, g.l1, o.m.l1, o.v.l1},
		{n.L2, g.l2, o.m.l2, o.v.l2},
	} {
		updMat(s.l.Wz, s.g.wz, s.m.wz, s.v.wz)
		updMat(s.l.Uz, s.g.uz, s.m.uz, s.v.uz)
		updMat(s.l.Wr, s.g.wr, s.m.wr, s.v.wr)
		updMat(s.l.Ur, s.g.ur, s.m.ur, s.v.ur)
		updMat(s.l.Wh, s.g.wh, s.m.wh, s.v.wh)
		updMat(s.l.Uh, s.g.uh, s.m.uh, s.v.uh)
		upd(s.l.Bz, s.g.bz, s.m.bz, s.v.bz)
		upd(s.l.Br, s.g.br, s.m.br, s.v.br)
		upd(s.l.Bh, s.g.bh, s.m.bh, s.v.bh)
	}
	updMat(n.W1, g.w1, o.m.w1, o.v.w1)
	upd(n.B1, g.b1, o.m.b1, o.v.b1)
	upd(n.W2, g.w2, o.m.w2, o.v.w2)

	o.m.b2 = adamBeta1*o.m.b2 + (1-adamBeta1)*g.b2
	o.v.b2 = adamBeta2*o.v.b2 + (1-adamBeta2)*g.b2*g.b2
	n.B2 -= lr * (o.m.b2 / c1) / (math.Sqrt(o.v.b2/c2) + adamEps)
}

// snapshot is a deep copy of all trainable weights, used to restore the best
// epoch after early stopping.
type snapshot struct {
	l1, l2 *layer
	w1     [][]float64
	b1     []float64
	w2     []float64
	b2     float64
}

func (n *Network) capture() *snapshot {
	return &snapshot{
		l1: copyLayer(n.L1),
		l2: copyLayer(n.L2),
		w1: copyMat(n.W1),
		b1: copyVec(n.B1),
		w2: copyVec(n.W2),
		b2: n.B2,
	}
}

func (n *Network) restore(s *snapshot) {
	n.L1 = copyLayer(s.l1)
	n.L2 = copyLayer(s.l2)
	n.W1 = copyMat(s.w1)
	n.B1 = copyVec(s.b1)
	n.W2 = copyVec(s.w2)
	n.B2 = s.b2
}

func copyLayer(l *layer) *layer {
	return &layer{
		In: l.In, Hidden: l.Hidden,
		Wz: copyMat(l.Wz), Uz: copyMat(l.Uz), Bz: copyVec(l.Bz),
		Wr: copyMat(l.Wr), Ur: copyMat(l.Ur), Br: copyVec(l.Br),
		Wh: copyMat(l.Wh), Uh: copyMat(l.Uh), Bh: copyVec(l.Bh),
	}
}

func zeroMat(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func copyMat(src [][]float64) [][]float64 {
	out := make([][]float64, len(src))
	for i := range src {
		out[i] = copyVec(src[i])
	}
	return out
}

func copyVec(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

func scaleMat(m [][]float64, f float64) {
	for i := range m {
		scaleVec(m[i], f)
	}
}

func scaleVec(v []float64, f float64) {
	for i := range v {
		v[i] *= f
	}
}
