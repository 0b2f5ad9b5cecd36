package engine

import "fmt"

// Card is an immutable playing card. Rank runs 2..14 with Ace high.
type Card struct {
	Rank int
	Suit byte // one of 'c' 'd' 'h' 's'
}

const rankChars = "  23456789TJQKA"

func (c Card) String() string {
	return fmt.Sprintf("%c%c", rankChars[c.Rank], c.Suit)
}

// ParseCard reads the two-character form produced by String, e.g. "As", "Td".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("bad card %q", s)
	}
	rank := 0
	for r := 2; r <= 14; r++ {
		if rankChars[r] == s[0] {
			rank = r
			break
		}
	}
	if rank == 0 {
		return Card{}, fmt.Errorf("bad rank in %q", s)
	}
	switch s[1] {
	case 'c', 'd', 'h', 's':
	default:
		return Card{}, fmt.Errorf("bad suit in %q", s)
	}
	return Card{Rank: rank, Suit: s[1]}, nil
}

func cardStrings(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
