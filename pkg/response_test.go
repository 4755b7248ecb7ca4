package rawfit

import (
	"math"
	"testing"
)

func TestResponseFuncZeroBeforeStart(t *testing.T) {
	for _, x := range []float64{-1000, 0, 50, 99.999, 100} {
		if got := ResponseFunc(x, 32, 100); got != 0 {
			t.Errorf("ResponseFunc(%v) = %v, want 0 at or before the start position", x, got)
		}
	}
}

func TestResponseFuncShape(t *testing.T) {
	// Positive after the start position, for (x-start)/shaping within the
	// first half period of the sine.
	if got := ResponseFunc(120, 32, 100); got <= 0 {
		t.Errorf("ResponseFunc(120) = %v, want > 0", got)
	}

	// The maximum of exp(-3u)*u^3*sin(u) sits at u ~ 1.155.
	peakX := 100 + 1.155*32
	peak := ResponseFunc(peakX, 32, 100)
	for _, x := range []float64{110, 130, 145, 160, 200} {
		if v := ResponseFunc(x, 32, 100); v > peak+1e-12 {
			t.Errorf("ResponseFunc(%v) = %v exceeds the expected peak %v", x, v, peak)
		}
	}
	if math.Abs(peak-0.0441) > 0.001 {
		t.Errorf("peak value = %v, want ~0.0441", peak)
	}
}

func TestResponseModelCurve(t *testing.T) {
	model := ResponseModel{NBins: 512}
	if got := model.NumParams(); got != 3 {
		t.Fatalf("NumParams = %d, want 3", got)
	}
	curve := model.Curve([]float64{32, 100, 2000})
	want := 2000 * ResponseFunc(150, 32, 100)
	if got := curve(150); math.Abs(got-want) > 1e-9 {
		t.Errorf("curve(150) = %v, want %v", got, want)
	}
}

// With a kernel much narrower than the shaping time the convolution reduces
// to the response scaled by the kernel area, amplitude*sigma*sqrt(2*pi).
func TestConvolvedModelNarrowKernel(t *testing.T) {
	model := ConvolvedModel{NBins: 512}
	if got := model.NumParams(); got != 4 {
		t.Fatalf("NumParams = %d, want 4", got)
	}

	shaping, start, variance, amplitude := 32.0, 100.0, 1.0, 3.0
	curve := model.Curve([]float64{shaping, start, variance, amplitude})

	area := amplitude * math.Sqrt(2*math.Pi*variance)
	for _, x := range []float64{150, 180, 220} {
		want := area * ResponseFunc(x, shaping, start)
		got := curve(x)
		if math.Abs(got-want) > 0.05*math.Abs(want) {
			t.Errorf("curve(%v) = %v, want %v within 5%%", x, got, want)
		}
	}
}

func TestConvolvedModelZeroFarFromPulse(t *testing.T) {
	model := ConvolvedModel{NBins: 512}
	curve := model.Curve([]float64{32, 100, 1, 1})

	// Many sigmas before the start position.
	if got := curve(50); math.Abs(got) > 1e-9 {
		t.Errorf("curve(50) = %v, want ~0 before the pulse", got)
	}
	// Outside the bin domain.
	if got := curve(-10); got != 0 {
		t.Errorf("curve(-10) = %v, want 0 outside the domain", got)
	}
	if got := curve(1e6); got != 0 {
		t.Errorf("curve(1e6) = %v, want 0 outside the domain", got)
	}
}
