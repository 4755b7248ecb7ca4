package rawfit

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// logisticSharpness gates the response function to zero before the pulse
// start. The value is part of the model definition, not a tunable.
const logisticSharpness = 10000.0

// convPoints is the number of samples of the fine grid used for the FFT
// convolution of the response with the gaussian kernel.
const convPoints = 10000

// convFFTSize is the padded FFT length, the next power of two above twice
// the grid size, so the circular convolution does not wrap into the signal
// domain.
const convFFTSize = 32768

// ResponseFunc is the electronic response of the front-end shaper to a
// delta-like charge deposit:
//
//	exp(-3(x-t0)/tau) * ((x-t0)/tau)^3 * sin((x-t0)/tau) / (1+exp(-10000(x-t0)))
//
// The logistic factor underflows to zero below the start position; that
// branch is short-circuited here since the exponential prefactor would
// otherwise overflow first.
func ResponseFunc(x, shapingTime, startPosition float64) float64 {
	d := x - startPosition
	if d <= 0 {
		return 0
	}
	u := d / shapingTime
	return math.Exp(-3*u) * u * u * u * math.Sin(u) / (1 + math.Exp(-logisticSharpness*d))
}

// GaussFunc is the gaussian smearing kernel exp(-0.5*x^2/variance)*amplitude.
func GaussFunc(x, variance, amplitude float64) float64 {
	return amplitude * math.Exp(-0.5*x*x/variance)
}

// PulseModel is a parametric pulse shape. Curve builds a closed evaluator
// for one parameter set; models with an expensive setup (the convolved one
// runs an FFT) amortize it over the bins of one evaluation.
type PulseModel interface {
	Name() string
	NumParams() int
	ParamNames() []string
	Curve(params []float64) func(x float64) float64
}

// ResponseModel is the response function scaled by an explicit amplitude.
// Parameters: shaping time, start position, amplitude.
type ResponseModel struct {
	NBins int
}

func (ResponseModel) Name() string { return "response" }

func (ResponseModel) NumParams() int { return 3 }

func (ResponseModel) ParamNames() []string {
	return []string{"ShapingTime", "StartPosition", "Amplitude"}
}

func (ResponseModel) Curve(params []float64) func(x float64) float64 {
	shaping, start, amplitude := params[0], params[1], params[2]
	return func(x float64) float64 {
		return amplitude * ResponseFunc(x, shaping, start)
	}
}

// ConvolvedModel is the numerical convolution of the response function with
// the gaussian kernel over the signal bin domain. Parameters: shaping time,
// start position, gaussian variance, amplitude.
type ConvolvedModel struct {
	NBins int
}

func (ConvolvedModel) Name() string { return "convolved" }

func (ConvolvedModel) NumParams() int { return 4 }

func (ConvolvedModel) ParamNames() []string {
	return []string{"ShapingTime", "StartPosition", "VarianceGauss", "Amplitude"}
}

func (m ConvolvedModel) Curve(params []float64) func(x float64) float64 {
	shaping, start, variance, amplitude := params[0], params[1], params[2], params[3]
	if variance < 1e-9 {
		// The minimizer may probe non-physical variances.
		variance = 1e-9
	}

	nBins := m.NBins
	if nBins <= 0 {
		nBins = DefaultSignalBins
	}
	dx := float64(nBins) / convPoints

	response := make([]float64, convFFTSize)
	for i := 0; i < convPoints; i++ {
		response[i] = ResponseFunc(float64(i)*dx, shaping, start)
	}

	// Gaussian kernel centered on zero, packed with wrap-around so the
	// circular convolution is the linear one on the padded grid.
	kernel := make([]float64, convFFTSize)
	for j := 0; j < convFFTSize; j++ {
		t := float64(j) * dx
		if j > convFFTSize/2 {
			t = float64(j-convFFTSize) * dx
		}
		kernel[j] = GaussFunc(t, variance, amplitude)
	}

	fft := fourier.NewFFT(convFFTSize)
	respCoeff := fft.Coefficients(nil, response)
	kernCoeff := fft.Coefficients(nil, kernel)
	for i := range respCoeff {
		respCoeff[i] *= kernCoeff[i]
	}
	conv := fft.Sequence(nil, respCoeff)
	scale := dx / float64(convFFTSize)
	for i := range conv {
		conv[i] *= scale
	}

	return func(x float64) float64 {
		pos := x / dx
		if pos < 0 || pos >= convPoints-1 {
			return 0
		}
		i := int(pos)
		frac := pos - float64(i)
		return conv[i]*(1-frac) + conv[i+1]*frac
	}
}
