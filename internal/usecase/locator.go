package usecase

import (
	"pippin/internal/entity"
	"pippin/pkg/logg"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
)

const (
	locatorName = "Locator"

	scoreScoringRole = 10
	scoreValidFrame  = 20
	minKeywordLength = 3
)

type MatchOptions struct {
	// Strict disables the substring and keyword tier.
	Strict bool
	// Silent suppresses the ambiguity warning.
	Silent bool
}

type Locator struct {
	logger *zap.Logger
}

func NewLocator(logger *zap.Logger) *Locator {
	return &Locator{
		logger: logger.With(zap.String(logg.Layer, locatorName)),
	}
}

// Locate returns the single best node for query among candidates, which must be
// in pre-order. A miss is nil, never an error.
func (l *Locator) Locate(query string, opts MatchOptions, candidates []*entity.Node) *entity.Node {
	tier, matches := l.Candidates(query, opts, candidates)
	if len(matches) == 0 {
		return nil
	}

	if len(matches) > 1 && !opts.Silent {
		l.logger.Warn("Ambiguous query, picking best match",
			zap.String(logg.Query, entity.ParseQuery(query).Text),
			zap.String(logg.Tier, tier.String()),
			zap.Int(logg.Count, len(matches)),
		)
	}

	return pickBest(matches)
}

// Candidates returns the winning tier and its matches in pre-order. For the
// substring tier the set is already narrowed to nodes with usable frames when
// any exist.
func (l *Locator) Candidates(query string, opts MatchOptions, candidates []*entity.Node) (entity.MatchTier, []*entity.Node) {
	q := entity.ParseQuery(query)
	if q.Text == "" {
		return entity.TierNone, nil
	}

	pool := eligible(q, candidates)

	if matches := filterNodes(pool, func(n *entity.Node) bool {
		return n.Identifier == q.Text
	}); len(matches) > 0 {
		return entity.TierExactIdentifier, matches
	}

	if matches := filterNodes(pool, func(n *entity.Node) bool {
		return strings.EqualFold(n.Label, q.Text)
	}); len(matches) > 0 {
		return entity.TierExactLabel, matches
	}

	if opts.Strict {
		return entity.TierNone, nil
	}

	matches := filterNodes(pool, func(n *entity.Node) bool {
		return fuzzyLabelMatch(n.Label, q.Text)
	})
	if len(matches) == 0 {
		return entity.TierNone, nil
	}

	if sized := filterNodes(matches, func(n *entity.Node) bool {
		return n.Frame.HasValidDimensions()
	}); len(sized) > 0 {
		matches = sized
	}

	return entity.TierSubstring, matches
}

func eligible(q entity.Query, candidates []*entity.Node) []*entity.Node {
	return filterNodes(candidates, func(n *entity.Node) bool {
		if n == nil || n.IsHidden() {
			return false
		}
		if q.HasRole() && n.CanonicalRole() != q.Role {
			return false
		}

		return true
	})
}

func fuzzyLabelMatch(label, text string) bool {
	if label == "" {
		return false
	}

	lowerLabel := strings.ToLower(label)
	lowerText := strings.ToLower(text)

	if strings.Contains(lowerLabel, lowerText) {
		return true
	}

	var keywords []string
	for _, word := range strings.Fields(lowerText) {
		if utf8.RuneCountInString(word) >= minKeywordLength {
			keywords = append(keywords, word)
		}
	}
	if len(keywords) == 0 {
		return false
	}

	for _, word := range keywords {
		if !strings.Contains(lowerLabel, word) {
			return false
		}
	}

	return true
}

func score(n *entity.Node) int {
	s := 0
	if n.CanonicalRole().IsScoring() {
		s += scoreScoringRole
	}
	if n.Frame.HasValidDimensions() {
		s += scoreValidFrame
	}

	return s
}

// pickBest keeps the first node of the highest score.
func pickBest(nodes []*entity.Node) *entity.Node {
	var (
		best      *entity.Node
		bestScore = -1
	)
	for _, n := range nodes {
		if s := score(n); s > bestScore {
			best, bestScore = n, s
		}
	}

	return best
}

func filterNodes(nodes []*entity.Node, keep func(*entity.Node) bool) []*entity.Node {
	var out []*entity.Node
	for _, n := range nodes {
		if keep(n) {
			out = append(out, n)
		}
	}

	return out
}

// Suggest returns up to limit distinct labels or identifiers closest to the
// query text by edit distance.
func Suggest(query string, nodes []*entity.Node, limit int) []string {
	text := strings.ToLower(entity.ParseQuery(query).Text)
	if text == "" || limit <= 0 {
		return nil
	}

	type scored struct {
		name     string
		distance int
	}

	seen := make(map[string]struct{})
	var pool []scored
	for _, n := range nodes {
		if n == nil || n.IsHidden() {
			continue
		}
		for _, name := range []string{n.Label, n.Identifier} {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			pool = append(pool, scored{
				name:     name,
				distance: levenshtein.ComputeDistance(text, strings.ToLower(name)),
			})
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].distance < pool[j].distance
	})

	maxDistance := utf8.RuneCountInString(text)/2 + 2
	var out []string
	for _, s := range pool {
		if len(out) == limit || s.distance > maxDistance {
			break
		}
		out = append(out, s.name)
	}

	return out
}
