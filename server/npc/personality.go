package npc

// SizingTier is one entry of a personality's raise-size table: a
// fraction of the pot and the weight of picking it.
type SizingTier struct {
	PotFraction float64
	Weight      float64
}

// Personality biases the generic decision sampler toward a play style:
// per-action weight multipliers, a raise-size table, and a jitter range
// applied multiplicatively to sampled sizes.
type Personality struct {
	Name      string
	FoldMult  float64
	CheckMult float64
	CallMult  float64
	RaiseMult float64
	Sizing    []SizingTier
	JitterLow  float64
	JitterHigh float64
}

var profiles = map[string]Personality{
	"balanced": {
		Name:      "balanced",
		FoldMult:  1.0,
		CheckMult: 1.0,
		CallMult:  1.0,
		RaiseMult: 1.0,
		Sizing: []SizingTier{
			{PotFraction: 0.5, Weight: 4},
			{PotFraction: 0.75, Weight: 3},
			{PotFraction: 1.0, Weight: 2},
			{PotFraction: 1.5, Weight: 1},
		},
		JitterLow:  0.9,
		JitterHigh: 1.15,
	},
	"maniac": {
		Name:      "maniac",
		FoldMult:  0.45,
		CheckMult: 0.6,
		CallMult:  0.9,
		RaiseMult: 2.2,
		Sizing: []SizingTier{
			{PotFraction: 0.75, Weight: 2},
			{PotFraction: 1.0, Weight: 3},
			{PotFraction: 1.5, Weight: 3},
			{PotFraction: 2.5, Weight: 2},
		},
		JitterLow:  0.85,
		JitterHigh: 1.35,
	},
	"rock": {
		Name:      "rock",
		FoldMult:  1.8,
		CheckMult: 1.3,
		CallMult:  0.7,
		RaiseMult: 0.55,
		Sizing: []SizingTier{
			{PotFraction: 0.33, Weight: 3},
			{PotFraction: 0.5, Weight: 4},
			{PotFraction: 0.75, Weight: 2},
		},
		JitterLow:  0.95,
		JitterHigh: 1.05,
	},
	"station": {
		Name:      "station",
		FoldMult:  0.5,
		CheckMult: 1.1,
		CallMult:  2.0,
		RaiseMult: 0.5,
		Sizing: []SizingTier{
			{PotFraction: 0.5, Weight: 5},
			{PotFraction: 0.75, Weight: 2},
		},
		JitterLow:  0.9,
		JitterHigh: 1.1,
	},
}

// Default is the balanced profile.
func Default() Personality { return profiles["balanced"] }

// ByName looks up a built-in profile.
func ByName(name string) (Personality, bool) {
	p, ok := profiles[name]
	return p, ok
}

// Names lists the built-in profiles.
func Names() []string {
	return []string{"balanced", "maniac", "rock", "station"}
}
