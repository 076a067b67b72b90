// Package rational provides an immutable exact fraction type used for all recipe math.
package rational

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTolerance is the absolute error accepted by FromFloat.
const DefaultTolerance = 1e-14

// maxExact is the largest integer a float64 holds without rounding.
const maxExact = 1 << 53

// ErrDivideByZero is raised (as a panic value) by Div when the divisor is zero.
var ErrDivideByZero = errors.New("rational: division by zero")

var zeroRat = new(big.Rat)

// Rational is an exact fraction. The zero value is 0.
// Values are never modified after construction; every operation returns a new value.
type Rational struct {
	r *big.Rat
}

// Zero and One are the common identities.
var (
	Zero = Rational{}
	One  = FromInt(1)
)

// New returns num/den. It panics if den is zero.
func New(num, den int64) Rational {
	if den == 0 {
		panic(ErrDivideByZero)
	}
	return Rational{r: big.NewRat(num, den)}
}

// FromInt returns n as a Rational.
func FromInt(n int64) Rational {
	return Rational{r: new(big.Rat).SetInt64(n)}
}

// FromBig copies r into a Rational.
func FromBig(r *big.Rat) Rational {
	if r == nil {
		return Zero
	}
	return Rational{r: new(big.Rat).Set(r)}
}

// Parse reads "a/b", an integer, or an exact decimal such as "0.25" or "1e-3".
func Parse(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("rational: empty string")
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Zero, fmt.Errorf("rational: invalid value %q", s)
	}
	return Rational{r: r}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Rational {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// FromFloat snaps x to the first continued-fraction convergent within tolerance.
// NaN and infinities map to zero.
func FromFloat(x, tolerance float64) Rational {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Zero
	}
	if math.Abs(x) >= maxExact {
		return Rational{r: new(big.Rat).SetFloat64(x)}
	}
	if x == math.Trunc(x) {
		return FromInt(int64(x))
	}

	neg := x < 0
	x = math.Abs(x)

	var h0, h1 int64 = 0, 1
	var k0, k1 int64 = 1, 0
	y := x
	for i := 0; i < 64; i++ {
		a := math.Floor(y)
		if a >= maxExact {
			break
		}
		h := int64(a)*h1 + h0
		k := int64(a)*k1 + k0
		if h >= maxExact || k >= maxExact {
			break
		}
		h0, h1 = h1, h
		k0, k1 = k1, k
		if math.Abs(x-float64(h)/float64(k)) < tolerance {
			break
		}
		f := y - a
		if f == 0 {
			break
		}
		y = 1 / f
	}

	if neg {
		h1 = -h1
	}
	return New(h1, k1)
}

func (a Rational) rat() *big.Rat {
	if a.r == nil {
		return zeroRat
	}
	return a.r
}

// Add returns a+b.
func (a Rational) Add(b Rational) Rational {
	return Rational{r: new(big.Rat).Add(a.rat(), b.rat())}
}

// Sub returns a-b.
func (a Rational) Sub(b Rational) Rational {
	return Rational{r: new(big.Rat).Sub(a.rat(), b.rat())}
}

// Mul returns a*b.
func (a Rational) Mul(b Rational) Rational {
	return Rational{r: new(big.Rat).Mul(a.rat(), b.rat())}
}

// Div returns a/b. It panics with ErrDivideByZero if b is zero; callers guard
// divisors that come from user input.
func (a Rational) Div(b Rational) Rational {
	if b.IsZero() {
		panic(ErrDivideByZero)
	}
	return Rational{r: new(big.Rat).Quo(a.rat(), b.rat())}
}

// Neg returns -a.
func (a Rational) Neg() Rational {
	return Rational{r: new(big.Rat).Neg(a.rat())}
}

// Abs returns |a|.
func (a Rational) Abs() Rational {
	return Rational{r: new(big.Rat).Abs(a.rat())}
}

// Min returns the smaller of a and b.
func (a Rational) Min(b Rational) Rational {
	if a.Lte(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func (a Rational) Max(b Rational) Rational {
	if a.Gte(b) {
		return a
	}
	return b
}

// Cmp returns -1, 0 or +1.
func (a Rational) Cmp(b Rational) int {
	return a.rat().Cmp(b.rat())
}

func (a Rational) Eq(b Rational) bool  { return a.Cmp(b) == 0 }
func (a Rational) Lt(b Rational) bool  { return a.Cmp(b) < 0 }
func (a Rational) Lte(b Rational) bool { return a.Cmp(b) <= 0 }
func (a Rational) Gt(b Rational) bool  { return a.Cmp(b) > 0 }
func (a Rational) Gte(b Rational) bool { return a.Cmp(b) >= 0 }

// Sign returns -1, 0 or +1.
func (a Rational) Sign() int {
	return a.rat().Sign()
}

// IsZero reports whether a == 0.
func (a Rational) IsZero() bool {
	return a.Sign() == 0
}

// IsInt reports whether the denominator is 1.
func (a Rational) IsInt() bool {
	return a.rat().IsInt()
}

// Num returns a copy of the numerator.
func (a Rational) Num() *big.Int {
	return new(big.Int).Set(a.rat().Num())
}

// Denom returns a copy of the denominator.
func (a Rational) Denom() *big.Int {
	return new(big.Int).Set(a.rat().Denom())
}

// Big returns a copy as a *big.Rat.
func (a Rational) Big() *big.Rat {
	return new(big.Rat).Set(a.rat())
}

// Ptr returns a pointer to a copy of a, for optional fields.
func (a Rational) Ptr() *Rational {
	return &a
}

// Float64 is for display only. Recipe math never goes through it.
func (a Rational) Float64() float64 {
	f, _ := a.rat().Float64()
	return f
}

// String returns "a" for integers and "a/b" otherwise.
func (a Rational) String() string {
	return a.rat().RatString()
}

// MarshalJSON encodes the value as its string form.
func (a Rational) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts "2/3" style strings and plain number literals.
func (a *Rational) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	r, err := Parse(s)
	if err != nil {
		return err
	}
	*a = r
	return nil
}

// MarshalYAML encodes the value as its string form.
func (a Rational) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (a *Rational) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("rational: expected scalar at line %d", value.Line)
	}
	if value.Tag == "!!null" {
		return nil
	}
	r, err := Parse(value.Value)
	if err != nil {
		return err
	}
	*a = r
	return nil
}

// Sum adds all values.
func Sum(values ...Rational) Rational {
	total := new(big.Rat)
	for _, v := range values {
		total.Add(total, v.rat())
	}
	return Rational{r: total}
}

// Or returns *p, or fallback when p is nil.
func Or(p *Rational, fallback Rational) Rational {
	if p == nil {
		return fallback
	}
	return *p
}
