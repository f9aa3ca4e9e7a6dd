package stitch

// Comparator decides whether two canonical forms are the same displayed line.
// The relation is symmetric but not transitive.
type Comparator struct {
	threshold float64
	metric    Metric
}

// NewComparator returns a comparator using threshold and metric. An empty
// metric selects MetricLevenshtein.
func NewComparator(threshold float64, metric Metric) Comparator {
	if metric == "" {
		metric = MetricLevenshtein
	}
	return Comparator{threshold: threshold, metric: metric}
}

// Similar reports whether Ratio(a, b) reaches the threshold.
func (c Comparator) Similar(a, b string) bool {
	return c.Ratio(a, b) >= c.threshold
}

// Ratio scores a and b in [0,1]. Two empty strings score 1; an empty string
// against a non-empty one scores 0. Lengths are counted in runes.
func (c Comparator) Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	switch c.metric {
	case MetricLCS:
		return 2 * float64(lcsLength(ra, rb)) / float64(len(ra)+len(rb))
	default:
		longest := max(len(ra), len(rb))
		return 1 - float64(editDistance(ra, rb))/float64(longest)
	}
}

// editDistance is the Levenshtein distance with unit costs.
func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
