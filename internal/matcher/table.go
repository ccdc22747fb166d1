package matcher

// Rule assigns Weight to Tag whenever Matcher matches.
type Rule struct {
	Tag     string
	Matcher Matcher
	Weight  int
}

// Score is the summed weight of the matching rules of one tag.
type Score struct {
	Tag   string
	Score int
}

// Table is an ordered list of rules. Categories are added by appending
// rules, never by code changes in the callers.
type Table []Rule

// Tags returns the distinct tags in order of first declaration.
func (t Table) Tags() []string {
	seen := make(map[string]bool, len(t))
	var tags []string
	for _, r := range t {
		if !seen[r.Tag] {
			seen[r.Tag] = true
			tags = append(tags, r.Tag)
		}
	}
	return tags
}

// Scores sums the weights of matching rules per tag. Every declared tag is
// present in the result, in declaration order.
func (t Table) Scores(text string) []Score {
	tags := t.Tags()
	idx := make(map[string]int, len(tags))
	scores := make([]Score, len(tags))
	for i, tag := range tags {
		idx[tag] = i
		scores[i].Tag = tag
	}
	for _, r := range t {
		if r.Matcher.Match(text) {
			w := r.Weight
			if w == 0 {
				w = 1
			}
			scores[idx[r.Tag]].Score += w
		}
	}
	return scores
}

// Best returns the tag with the highest positive score. Ties go to the tag
// declared first. When nothing matches, fallback is returned.
func (t Table) Best(text, fallback string) string {
	best, max := fallback, 0
	for _, s := range t.Scores(text) {
		if s.Score > max {
			best, max = s.Tag, s.Score
		}
	}
	return best
}

// First returns the tag of the first rule, in declaration order, whose
// matcher matches text, or fallback.
func (t Table) First(text, fallback string) string {
	for _, r := range t {
		if r.Matcher.Match(text) {
			return r.Tag
		}
	}
	return fallback
}
