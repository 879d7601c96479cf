package entity

import "strings"

// Query is a parsed "[role:]text" element query.
type Query struct {
	Role Role
	Text string
	Raw  string
}

func ParseQuery(raw string) Query {
	q := Query{Raw: raw, Text: raw}

	if strings.HasPrefix(raw, "http") {
		return q
	}

	rolePart, text, ok := strings.Cut(raw, ":")
	if !ok {
		return q
	}

	// An unknown role is kept as spelled so it filters out every node.
	q.Role, _ = LookupRole(rolePart)
	q.Text = text

	return q
}

func (q Query) HasRole() bool {
	return q.Role != ""
}

// MatchTier orders the ways a node can satisfy a query. Higher wins.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierSubstring
	TierExactLabel
	TierExactIdentifier
)

func (t MatchTier) String() string {
	switch t {
	case TierExactIdentifier:
		return "id"
	case TierExactLabel:
		return "label"
	case TierSubstring:
		return "substring"
	default:
		return "none"
	}
}
