package universe

import "strconv"

// Typecode is the attribute a channel carries within its fixture.
type Typecode int64

const (
	Unpatched Typecode = -1
	// Passthrough marks a patched channel with no synthesised attribute.
	Passthrough Typecode = 0

	Red          Typecode = 1
	Green        Typecode = 2
	Blue         Typecode = 3
	White        Typecode = 4
	NeutralWhite Typecode = 5
	WarmWhite    Typecode = 6
	CoolWhite    Typecode = 7
	Amber        Typecode = 8
	Lime         Typecode = 9
	UV           Typecode = 10
	X            Typecode = 11
	Y            Typecode = 12

	// MaxAttribute is the highest typecode that takes part in synthesis.
	MaxAttribute Typecode = 15
)

var typecodeNames = map[string]Typecode{
	"red":           Red,
	"green":         Green,
	"blue":          Blue,
	"white":         White,
	"neutral_white": NeutralWhite,
	"warm_white":    WarmWhite,
	"cool_white":    CoolWhite,
	"amber":         Amber,
	"lime":          Lime,
	"uv":            UV,
	"x":             X,
	"y":             Y,
}

// ParseTypecode maps an attribute name to its typecode. Unknown names
// return Unpatched.
func ParseTypecode(name string) Typecode {
	if tc, ok := typecodeNames[name]; ok {
		return tc
	}
	return Unpatched
}

// IsAttribute reports whether tc indexes a FixtureAttributeVector slot.
func (tc Typecode) IsAttribute() bool {
	return tc > 0 && tc <= MaxAttribute
}

func (tc Typecode) String() string {
	for name, code := range typecodeNames {
		if code == tc {
			return name
		}
	}
	switch tc {
	case Unpatched:
		return "unpatched"
	case Passthrough:
		return "passthrough"
	}
	return "typecode(" + strconv.FormatInt(int64(tc), 10) + ")"
}
