package types

import "fmt"

// Side is the direction of a trade against a Base/Quote pool. Buy pays the
// quote token and receives the base token; Sell pays base and receives quote.
type Side uint8

const (
	SideUnspecified Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unspecified"
	}
}

// Validate rejects the zero value.
func (s Side) Validate() error {
	if s != SideBuy && s != SideSell {
		return ErrInvalidSide.Wrapf("%d", s)
	}
	return nil
}

// ParseSide parses "buy" or "sell".
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy", "Buy", "BUY":
		return SideBuy, nil
	case "sell", "Sell", "SELL":
		return SideSell, nil
	default:
		return SideUnspecified, ErrInvalidSide.Wrapf("unknown side %q", s)
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("cannot marshal side: %w", err)
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	v, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
