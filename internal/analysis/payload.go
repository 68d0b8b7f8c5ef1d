package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Payload is the structured summary handed to the narrative service.
// Build it with NewPayload and treat it as read-only afterwards.
type Payload struct {
	Dataset     string
	Rows        int
	Profiles    []ColumnProfile
	Missing     []MissingCount
	Correlation *CorrelationMatrix
	// Artifacts are image file names in generation order.
	Artifacts []string
}

// NewPayload copies the profile and artifact list so later changes to either
// cannot leak into the payload.
func NewPayload(dataset string, p *Profile, artifacts []string) *Payload {
	out := &Payload{Dataset: dataset}
	if p != nil {
		out.Rows = p.Rows
		out.Profiles = append([]ColumnProfile(nil), p.Columns...)
		out.Missing = append([]MissingCount(nil), p.Missing...)
		if p.Correlation != nil {
			cm := &CorrelationMatrix{Columns: append([]string(nil), p.Correlation.Columns...)}
			for _, row := range p.Correlation.Values {
				cm.Values = append(cm.Values, append([]float64(nil), row...))
			}
			out.Correlation = cm
		}
	}
	out.Artifacts = append([]string(nil), artifacts...)
	return out
}

// Text renders the payload as a compact, prompt-friendly summary.
func (p *Payload) Text() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Dataset != "" {
		fmt.Fprintf(&b, "File: %s\n", p.Dataset)
	}
	fmt.Fprintf(&b, "Rows: %d\n", p.Rows)
	fmt.Fprintf(&b, "Columns: %d\n\n", len(p.Profiles))

	b.WriteString("[SUMMARY STATISTICS]\n")
	for _, c := range p.Profiles {
		fmt.Fprintf(&b, "- %s: %s (count %d)", safeName(c.Name), c.Category, c.Count)
		switch {
		case c.Numeric != nil:
			s := c.Numeric
			fmt.Fprintf(&b, " | mean %s, std %s, min %s, 25%% %s, 50%% %s, 75%% %s, max %s",
				num(s.Mean), num(s.Std), num(s.Min), num(s.Q1), num(s.Median), num(s.Q3), num(s.Max))
		case c.Categorical != nil:
			s := c.Categorical
			fmt.Fprintf(&b, " | unique %d", s.Unique)
			if s.Freq > 0 {
				fmt.Fprintf(&b, ", top %s (freq %d)", safeVal(s.Top), s.Freq)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[MISSING VALUES]\n")
	for _, m := range p.Missing {
		fmt.Fprintf(&b, "- %s: %d\n", safeName(m.Column), m.Count)
	}

	if p.Correlation != nil && len(p.Correlation.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(p.Correlation.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, pr{A: p.Correlation.Columns[i], B: p.Correlation.Columns[j], R: p.Correlation.Values[i][j]})
			}
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
			if math.IsNaN(ai) {
				return false
			}
			if math.IsNaN(aj) {
				return true
			}
			return ai > aj
		})
		maxp := 10
		if len(pairs) < maxp {
			maxp = len(pairs)
		}
		for i := 0; i < maxp; i++ {
			fmt.Fprintf(&b, "- %s ~ %s: r=%s\n", pairs[i].A, pairs[i].B, num(pairs[i].R))
		}
	}

	if len(p.Artifacts) > 0 {
		b.WriteString("\n[VISUALIZATIONS]\n")
		for _, a := range p.Artifacts {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
