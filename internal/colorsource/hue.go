package colorsource

import "github.com/kdforest/kdforest/internal/colorspace"

// hueCompare implements a trig-free total order on 24-bit RGB colors
// that agrees with hue angle. The true hue angle is
// atan2(sqrt(3)*(G-B), 2R-G-B) mod 2*pi; rather than evaluate atan2, the
// comparator partitions by the sign of the numerator/denominator into
// three strictly ordered quadrant groups and, within a group, compares
// cross products instead of dividing.
//
// Returns a negative number if a sorts before b, positive if after, zero
// if they compare equal.
func hueCompare(a, b uint32) int {
	ar, ag, ab := colorspace.Unpack(a)
	br, bg, bb := colorspace.Unpack(b)

	anum, adenom := int(ag)-int(ab), 2*int(ar)-int(ag)-int(ab)
	bnum, bdenom := int(bg)-int(bb), 2*int(br)-int(bg)-int(bb)

	if adenom >= 0 {
		if anum >= 0 {
			if bdenom < 0 || bnum < 0 {
				return -1
			}
		} else {
			if bdenom < 0 || bnum >= 0 {
				return 1
			}
		}
	} else if bdenom >= 0 {
		if bnum >= 0 {
			return 1
		}
		return -1
	}

	// A zero numerator lies on its region's axis (angle 0 for d >= 0,
	// including the 0/0 grays, pi for d < 0), so compare the numerators,
	// negated where the denominator is negative, instead of dividing.
	if anum == 0 || bnum == 0 {
		lhs := anum
		if adenom < 0 {
			lhs = -anum
		}
		rhs := bnum
		if bdenom < 0 {
			rhs = -bnum
		}
		return lhs - rhs
	}

	// Same/comparable quadrant: an/ad < bn/bd iff an*bd < bn*ad, since both
	// denominators share a sign here and the comparison survives
	// cross-multiplication without a sign flip.
	lhs := anum * bdenom
	rhs := bnum * adenom
	return lhs - rhs
}
