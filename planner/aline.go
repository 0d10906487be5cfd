package planner

import (
	"math"

	"tinygmc/gcodestate"
	"tinygmc/trapezoid"
)

// AxisLimits is the subset of per-axis configuration aline needs:
// velocity, jerk, and junction-deviation ceilings.
type AxisLimits struct {
	VelocityMax float64
	Jerk        float64
}

// JunctionDeviation is the cornering-tolerance constant (mm) used to
// convert the angle between two unit vectors into a junction velocity
// limit, per the classic Klipper/TinyG junction-deviation formula.
const JunctionDeviation = 0.01

// Aline fills in a freshly allocated buffer's motion parameters from a
// target position delta: the unit vector, length, the rate-limiting
// axis's jerk (the jerk used for this block's trapezoid fit is the
// jerk of whichever axis moves the largest fraction of the diagonal,
// since that axis reaches its own jerk limit first), and the velocity
// ceiling implied by the per-axis feed limits.
func Aline(b *Buffer, from, to [gcodestate.AxisCount]float64, limits [gcodestate.AxisCount]AxisLimits, feedRate float64) {
	var delta [gcodestate.AxisCount]float64
	var lengthSq float64
	for i := range delta {
		delta[i] = to[i] - from[i]
		lengthSq += delta[i] * delta[i]
	}
	length := math.Sqrt(lengthSq)
	b.From = from
	b.Target = to
	b.Length = length

	if length == 0 {
		return
	}
	for i := range delta {
		b.Unit[i] = delta[i] / length
	}

	cruise := feedRate
	minJerk := math.Inf(1)
	for i := range delta {
		frac := math.Abs(b.Unit[i])
		if frac < 1e-9 {
			continue
		}
		if limits[i].VelocityMax > 0 {
			axisCruise := limits[i].VelocityMax / frac
			if axisCruise < cruise {
				cruise = axisCruise
			}
		}
		if limits[i].Jerk > 0 {
			axisJerk := limits[i].Jerk / frac
			if axisJerk < minJerk {
				minJerk = axisJerk
			}
		}
	}
	if math.IsInf(minJerk, 1) {
		minJerk = 0
	}

	b.CruiseVmax = cruise
	b.Jerk = minJerk
	b.EntryVmax = cruise
	// DeltaVmax is the largest velocity step this block's own length can
	// absorb under its jerk limit, starting from rest — the ceiling
	// trapezoid.Plan uses to decide how far entry/exit may safely diverge
	// from cruise.
	b.DeltaVmax = trapezoid.Vf(0, length, minJerk)
	b.Replannable = true
}

// JunctionVelocity computes the cornering velocity limit between two
// consecutive unit vectors under the junction-deviation model: a sharp
// direction change (small cosTheta) allows little speed, a straight-
// through move (cosTheta near 1) allows up to the smaller of the two
// blocks' cruise velocities.
func JunctionVelocity(unitA, unitB [gcodestate.AxisCount]float64, jerk float64) float64 {
	var cosTheta float64
	for i := range unitA {
		cosTheta += unitA[i] * unitB[i]
	}
	if cosTheta > 1 {
		cosTheta = 1
	}
	if cosTheta < -1 {
		cosTheta = -1
	}

	// sin(theta/2) via the half-angle identity, avoiding acos for a
	// cheaper and numerically stabler computation.
	sinHalf := math.Sqrt(math.Max(0, (1-cosTheta)/2))
	if sinHalf < 1e-10 {
		return math.Inf(1) // colinear continuation: no cornering limit
	}
	r := JunctionDeviation * sinHalf / (1 - sinHalf)
	return math.Sqrt(jerk * r)
}
