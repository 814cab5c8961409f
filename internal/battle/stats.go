package battle

import "ecocards/internal/model"

// Stat is one of the three numeric card attributes compared in a round
type Stat string

const (
	StatEnvironmentalFriendliness Stat = "environmental_friendliness"
	StatBeauty                    Stat = "beauty"
	StatCost                      Stat = "cost"
)

type direction int

const (
	higherWins direction = iota
	lowerWins
)

type statRule struct {
	extract func(c *model.Card) int
	dir     direction
}

var statTable = map[Stat]statRule{
	StatEnvironmentalFriendliness: {
		extract: func(c *model.Card) int { return c.EnvironmentalFriendliness },
		dir:     higherWins,
	},
	StatBeauty: {
		extract: func(c *model.Card) int { return c.Beauty },
		dir:     higherWins,
	},
	StatCost: {
		extract: func(c *model.Card) int { return c.Cost },
		dir:     lowerWins,
	},
}

// Stats lists the comparable stats in display order
func Stats() []Stat {
	return []Stat{StatEnvironmentalFriendliness, StatBeauty, StatCost}
}

// ParseStat validates a client-supplied stat name
func ParseStat(name string) (Stat, error) {
	s := Stat(name)
	if _, ok := statTable[s]; !ok {
		return "", Errorf(ErrInvalidStat, "unknown stat %q", name)
	}
	return s, nil
}

// Value reads the stat from a card
func (s Stat) Value(c *model.Card) int {
	return statTable[s].extract(c)
}

// Compare returns 1 if a beats b on stat, -1 if b beats a and 0 on a tie
func Compare(stat Stat, a, b *model.Card) int {
	rule := statTable[stat]
	va, vb := rule.extract(a), rule.extract(b)
	if va == vb {
		return 0
	}
	better := va > vb
	if rule.dir == lowerWins {
		better = va < vb
	}
	if better {
		return 1
	}
	return -1
}
