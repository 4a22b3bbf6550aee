// rational.go implements the exact rational time type used for all
// scheduling and cache keying.

package types

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	dectofrac "github.com/av-elier/go-decimal-to-rational"
)

// Rational is an exact fraction. It is the unit of every timeline
// position and duration; arithmetic and comparisons never go through
// floating point, so equal times are equal byte-for-byte after Reduce.
type Rational struct {
	Num int64
	Den int64
}

// RationalMax is a sentinel meaning "the end of the timeline".
var RationalMax = Rational{Num: math.MaxInt64, Den: 1}

func NewRational(num, den int64) Rational {
	return Rational{Num: num, Den: den}.Reduce()
}

func (r Rational) IsZero() bool {
	return r.Num == 0
}

// IsNull reports whether the value is unusable as a timebase or time.
func (r Rational) IsNull() bool {
	return r.Den == 0 || r.Num == 0 && r.Den == 0
}

func (r Rational) Reduce() Rational {
	if r.Den == 0 {
		return r
	}
	neg := false
	num, den := r.Num, r.Den
	if num < 0 {
		neg = !neg
		num = -num
	}
	if den < 0 {
		neg = !neg
		den = -den
	}
	g := gcd(num, den)
	if g > 1 {
		num /= g
		den /= g
	}
	if neg {
		num = -num
	}
	return Rational{Num: num, Den: den}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func (r Rational) Reverse() Rational {
	return Rational{
		Num: r.Den,
		Den: r.Num,
	}
}

func (r Rational) Add(other Rational) Rational {
	return Rational{
		Num: r.Num*other.Den + other.Num*r.Den,
		Den: r.Den * other.Den,
	}.Reduce()
}

func (r Rational) Sub(other Rational) Rational {
	return Rational{
		Num: r.Num*other.Den - other.Num*r.Den,
		Den: r.Den * other.Den,
	}.Reduce()
}

func (r Rational) Mul(other Rational) Rational {
	return Rational{
		Num: r.Num * other.Num,
		Den: r.Den * other.Den,
	}.Reduce()
}

func (r Rational) Div(other Rational) Rational {
	return Rational{
		Num: r.Num * other.Den,
		Den: r.Den * other.Num,
	}.Reduce()
}

// cmpFastLimit bounds the operands of the allocation-free comparison
// path: below it the int64 cross products cannot overflow.
const cmpFastLimit = 1 << 31

// Cmp returns -1, 0 or 1 if r is less than, equal to or greater
// than other. The comparison is exact.
func (r Rational) Cmp(other Rational) int {
	ln, ld := r.Num, r.Den
	on, od := other.Num, other.Den
	if ld < 0 {
		ln, ld = -ln, -ld
	}
	if od < 0 {
		on, od = -on, -od
	}
	if ld > 0 && od > 0 &&
		ln > -cmpFastLimit && ln < cmpFastLimit && ld < cmpFastLimit &&
		on > -cmpFastLimit && on < cmpFastLimit && od < cmpFastLimit {
		switch a, b := ln*od, on*ld; {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
	l := big.NewRat(r.Num, r.Den)
	o := big.NewRat(other.Num, other.Den)
	return l.Cmp(o)
}

func (r Rational) Less(other Rational) bool {
	return r.Cmp(other) < 0
}

func (r Rational) LessOrEqual(other Rational) bool {
	return r.Cmp(other) <= 0
}

func (r Rational) Equal(other Rational) bool {
	return r.Cmp(other) == 0
}

// SnapDown rounds r down to the nearest multiple of the timebase:
// floor(r/timebase) timebase-sized steps, expressed in
// timebase-denominator units. The products are taken in big.Int, so
// large terms never overflow mid-computation; a result past int64
// saturates to RationalMax.
func (r Rational) SnapDown(timebase Rational) Rational {
	num := new(big.Int).Mul(big.NewInt(r.Num), big.NewInt(timebase.Den))
	den := new(big.Int).Mul(big.NewInt(r.Den), big.NewInt(timebase.Num))
	steps := num.Div(num, den)
	snappedNum := steps.Mul(steps, big.NewInt(timebase.Num))
	if !snappedNum.IsInt64() {
		return RationalMax
	}
	return Rational{Num: snappedNum.Int64(), Den: timebase.Den}
}

func newNTSCRationalFromFloat64(f float64) *big.Rat {
	den := 1001 // common denominator for NTSC frame rates
	num := math.Ceil(f) * 1000
	r := big.NewRat(int64(num), int64(den))
	confirmValue, _ := r.Float64()
	if math.Abs(f-confirmValue) < 1e-2 {
		return r
	}
	return nil
}

func RationalFromApproxFloat64(fps float64) (r Rational) {
	if float64(int64(fps)) == fps {
		r.Num = int64(fps)
		r.Den = 1
		return
	}

	rat := newNTSCRationalFromFloat64(fps)
	if rat != nil {
		r.Num = rat.Num().Int64()
		r.Den = rat.Denom().Int64()
		return
	}

	r.Num = int64(fps * 1000000)
	r.Den = 1000000
	return r.Reduce()
}

func RationalFromFloat64(v float64) Rational {
	var r Rational
	if float64(int64(v)) == v {
		r.Num = int64(v)
		r.Den = 1
		return r
	}
	rat := dectofrac.NewRatP(v, 1e-6)
	r.Num = rat.Num().Int64()
	r.Den = rat.Denom().Int64()
	return r
}

func RationalFromString(s string) (*Rational, error) {
	var r Rational
	switch {
	case len(s) == 0:
		return nil, fmt.Errorf("unable to parse Rational from empty string")
	case strings.Contains(s, "/"):
		if _, err := fmt.Sscanf(s, "%d/%d", &r.Num, &r.Den); err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
	case s[0] == '~':
		v, err := strconv.ParseFloat(s[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
		r = RationalFromApproxFloat64(v)
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
		r = RationalFromFloat64(v)
	}
	if r.Den == 0 {
		return nil, fmt.Errorf("denominator cannot be zero")
	}
	return &r, nil
}

func (r Rational) Float64() float64 {
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rational) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("unable to unmarshal Rational from JSON '%s': %w", b, err)
	}
	v, err := RationalFromString(s)
	if err != nil {
		return fmt.Errorf("unable to unmarshal Rational from string %q: %w", s, err)
	}
	*r = *v
	return nil
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func (r *Rational) UnmarshalYAML(b []byte) error {
	return r.UnmarshalJSON(b)
}

func (r Rational) MarshalYAML() (any, error) {
	return r.String(), nil
}
