package rawfit

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Fit window margins around the peak bin, in bins.
const (
	FitWindowLow  = 45
	FitWindowHigh = 70
)

// FitParam is the resolved state of one model parameter entering a fit:
// either fixed to a value, or free with an initial guess.
type FitParam struct {
	Fixed bool
	Value float64
}

// FitResult holds the outcome of one pulse fit. A fit that does not
// converge still carries its last parameter state; Converged only qualifies
// the quality of the result.
type FitResult struct {
	Params      []float64
	Errors      []float64
	ChiSquare   float64
	ResidualRMS float64
	Converged   bool
	WindowLow   int
	WindowHigh  int
}

// FitSignal fits the baseline-subtracted samples of s against the model in
// the window [peak-FitWindowLow, peak+FitWindowHigh), clamped to the valid
// sample range. Each sample is weighted by the inverse squared baseline
// sigma; a zero sigma falls back to unit weights. Fixed parameters are
// removed from the search space.
func FitSignal(s *RawSignal, model PulseModel, params []FitParam) FitResult {
	return FitSignalWindow(s, model, params, FitWindowLow, FitWindowHigh)
}

func FitSignalWindow(s *RawSignal, model PulseModel, params []FitParam, lowMargin, highMargin int) FitResult {
	result := FitResult{
		Params: make([]float64, model.NumParams()),
		Errors: make([]float64, model.NumParams()),
	}
	for i, p := range params {
		result.Params[i] = p.Value
	}

	peak := s.GetMaxPeakBin()
	if peak < 0 {
		return result
	}
	lo := peak - lowMargin
	if lo < 0 {
		lo = 0
	}
	hi := peak + highMargin
	if hi > s.GetNumberOfPoints() {
		hi = s.GetNumberOfPoints()
	}
	if hi <= lo {
		return result
	}
	result.WindowLow = lo
	result.WindowHigh = hi

	weight := 1.0
	if sigma := s.GetBaseLineSigma(); sigma > 0 {
		weight = 1 / (sigma * sigma)
	}

	var free []int
	for i, p := range params {
		if !p.Fixed {
			free = append(free, i)
		}
	}

	full := make([]float64, len(params))
	copy(full, result.Params)
	objective := func(x []float64) float64 {
		for k, idx := range free {
			full[idx] = x[k]
		}
		curve := model.Curve(full)
		var chi2 float64
		for i := lo; i < hi; i++ {
			d := s.GetData(i) - curve(float64(i))
			chi2 += d * d * weight
		}
		return chi2
	}

	if len(free) > 0 {
		x0 := make([]float64, len(free))
		for k, idx := range free {
			x0[k] = params[idx].Value
		}
		problem := optimize.Problem{Func: objective}
		settings := &optimize.Settings{
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-10,
				Relative:   1e-10,
				Iterations: 200,
			},
			FuncEvaluations: 50000,
		}
		res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
		if res != nil {
			for k, idx := range free {
				result.Params[idx] = res.X[k]
			}
			result.Converged = err == nil && res.Status != optimize.Failure
		}
		fillErrors(&result, objective, free)
	}

	curve := model.Curve(result.Params)
	var chi2, squares float64
	for i := lo; i < hi; i++ {
		d := s.GetData(i) - curve(float64(i))
		squares += d * d
		chi2 += d * d * weight
	}
	result.ChiSquare = chi2
	result.ResidualRMS = math.Sqrt(squares / float64(hi-lo))
	return result
}

// fillErrors estimates the uncertainty of the free parameters from the
// numerical Hessian of the chi-square at the minimum. For chi2 the
// covariance is 2*H^-1; when the Hessian is not positive definite only the
// diagonal curvature is used.
func fillErrors(result *FitResult, objective func([]float64) float64, free []int) {
	n := len(free)
	x := make([]float64, n)
	for k, idx := range free {
		x[k] = result.Params[idx]
	}
	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, objective, x, nil)

	var chol mat.Cholesky
	if chol.Factorize(hess) {
		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err == nil {
			for k, idx := range free {
				v := 2 * inv.At(k, k)
				if v > 0 {
					result.Errors[idx] = math.Sqrt(v)
				}
			}
			return
		}
	}
	for k, idx := range free {
		if h := hess.At(k, k); h > 0 {
			result.Errors[idx] = math.Sqrt(2 / h)
		}
	}
}
