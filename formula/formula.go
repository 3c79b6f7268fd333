// Package formula parses the small subset of Wilkinson-style regression
// formulas used by our analyses, e.g.
//
//	AGDIST ~ P145 + P155 + P145:P155 + 0
//
// Supported on the right hand side: bare column names, Q("quoted name") for
// names with spaces or operators, ':' interactions, '*' crossings (a*b expands
// to a + b + a:b), and 0, 1 or -1 to control the intercept.
package formula

import (
	"fmt"
	"sort"
	"strings"
)

// InterceptName is the name given to the intercept column of a design matrix.
const InterceptName = "Intercept"

// Term is a single predictor: one column, or the product of several.
type Term []string

// Name joins the factors in the order they were written.
func (t Term) Name() string {
	return strings.Join(t, ":")
}

// Key is the normalized name, which does not depend on factor order.
func (t Term) Key() string {
	return NormalizeTerm(t.Name())
}

type Formula struct {
	Response  string
	Terms     []Term
	Intercept bool
}

// NormalizeTerm sorts the factors of an interaction term so that "B:A" and
// "A:B" share a key. Fitting routines do not agree on the order in which they
// report interaction factors. Non-interaction names are returned unchanged.
func NormalizeTerm(name string) string {
	if !strings.Contains(name, ":") {
		return name
	}
	parts := strings.Split(name, ":")
	sort.Strings(parts)
	return strings.Join(parts, ":")
}

// Parse reads a formula such as "y ~ a + b + a:b".
func Parse(s string) (*Formula, error) {
	sides := strings.Split(s, "~")
	if len(sides) != 2 {
		return nil, fmt.Errorf("formula %q must have exactly one ~", s)
	}

	response, err := unquote(strings.TrimSpace(sides[0]))
	if err != nil {
		return nil, fmt.Errorf("formula %q: %w", s, err)
	}
	if response == "" {
		return nil, fmt.Errorf("formula %q has no response", s)
	}

	f := &Formula{Response: response, Intercept: true}
	seen := make(map[string]struct{})

	for _, part := range splitTopLevel(sides[1], '+') {
		part = strings.TrimSpace(part)

		part, dropIntercept := trimMinusOne(part)
		if dropIntercept {
			f.Intercept = false
		}

		switch part {
		case "":
			if dropIntercept {
				continue
			}
			return nil, fmt.Errorf("formula %q has an empty term", s)
		case "0":
			f.Intercept = false
			continue
		case "1":
			f.Intercept = true
			continue
		}

		terms, err := parseTerm(part)
		if err != nil {
			return nil, fmt.Errorf("formula %q: %w", s, err)
		}

		for _, term := range terms {
			if _, dup := seen[term.Key()]; dup {
				continue
			}
			seen[term.Key()] = struct{}{}
			f.Terms = append(f.Terms, term)
		}
	}

	return f, nil
}

// FromColumns builds the formula that regresses response on each column, as
// main effects only.
func FromColumns(response string, columns []string, intercept bool) *Formula {
	f := &Formula{Response: response, Intercept: intercept}
	for _, c := range columns {
		f.Terms = append(f.Terms, Term{c})
	}
	return f
}

// FromPredictors is like FromColumns, except that a name containing ':' is
// read as an interaction of the columns it joins, as in a predictor list
// that names "P145:P155".
func FromPredictors(response string, predictors []string, intercept bool) *Formula {
	f := &Formula{Response: response, Intercept: intercept}
	seen := make(map[string]struct{})
	for _, p := range predictors {
		term := Term(strings.Split(p, ":"))
		if _, dup := seen[term.Key()]; dup {
			continue
		}
		seen[term.Key()] = struct{}{}
		f.Terms = append(f.Terms, term)
	}
	return f
}

// WithIntercept returns a copy of f with the intercept switched on or off.
func (f *Formula) WithIntercept(intercept bool) *Formula {
	out := &Formula{Response: f.Response, Intercept: intercept}
	out.Terms = append(out.Terms, f.Terms...)
	return out
}

// Columns lists every distinct column the formula reads, response first.
func (f *Formula) Columns() []string {
	out := []string{f.Response}
	seen := map[string]struct{}{f.Response: {}}
	for _, term := range f.Terms {
		for _, factor := range term {
			if _, exists := seen[factor]; exists {
				continue
			}
			seen[factor] = struct{}{}
			out = append(out, factor)
		}
	}
	return out
}

// TermNames lists the names of the design matrix columns, intercept first.
func (f *Formula) TermNames() []string {
	out := make([]string, 0, len(f.Terms)+1)
	if f.Intercept {
		out = append(out, InterceptName)
	}
	for _, t := range f.Terms {
		out = append(out, t.Name())
	}
	return out
}

func (f *Formula) String() string {
	rhs := make([]string, 0, len(f.Terms)+1)
	for _, t := range f.Terms {
		factors := make([]string, len(t))
		for i, factor := range t {
			factors[i] = quote(factor)
		}
		rhs = append(rhs, strings.Join(factors, ":"))
	}
	if !f.Intercept {
		rhs = append(rhs, "0")
	}
	if len(rhs) == 0 {
		rhs = append(rhs, "1")
	}
	return quote(f.Response) + " ~ " + strings.Join(rhs, " + ")
}

func parseTerm(part string) ([]Term, error) {
	crossed := splitTopLevel(part, '*')
	if len(crossed) > 1 {
		factors := make([]string, 0, len(crossed))
		for _, c := range crossed {
			inner, err := parseTerm(strings.TrimSpace(c))
			if err != nil {
				return nil, err
			}
			if len(inner) != 1 || len(inner[0]) != 1 {
				return nil, fmt.Errorf("only single columns may be crossed with *, got %q", part)
			}
			factors = append(factors, inner[0][0])
		}
		return crossAll(factors), nil
	}

	var term Term
	for _, factor := range splitTopLevel(part, ':') {
		name, err := unquote(strings.TrimSpace(factor))
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("empty factor in term %q", part)
		}
		term = append(term, name)
	}

	return []Term{term}, nil
}

// crossAll expands a*b*c into every non-empty combination, smallest first.
func crossAll(factors []string) []Term {
	out := make([]Term, 0, 1<<len(factors))
	for size := 1; size <= len(factors); size++ {
		for mask := 1; mask < 1<<len(factors); mask++ {
			if bitCount(mask) != size {
				continue
			}
			var term Term
			for i, f := range factors {
				if mask&(1<<i) != 0 {
					term = append(term, f)
				}
			}
			out = append(out, term)
		}
	}
	return out
}

func bitCount(x int) int {
	n := 0
	for ; x != 0; x &= x - 1 {
		n++
	}
	return n
}

// trimMinusOne strips a trailing "- 1" (or a leading "-1") that removes the
// intercept. A hyphen inside a name, as in AG-DIST, is left alone.
func trimMinusOne(part string) (string, bool) {
	if part == "-1" || part == "- 1" || part == "-0" || part == "- 0" {
		return "", true
	}

	for _, suffix := range []string{" - 1", " -1"} {
		if strings.HasSuffix(part, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(part, suffix)), true
		}
	}

	return part, false
}

// splitTopLevel splits on sep, ignoring separators inside Q(...) or quotes.
func splitTopLevel(s string, sep rune) []string {
	out := make([]string, 0)
	depth := 0
	var quote rune
	start := 0

	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'' || r == '`':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + len(string(r))
		}
	}

	return append(out, s[start:])
}

func unquote(s string) (string, error) {
	if strings.HasPrefix(s, "Q(") {
		if !strings.HasSuffix(s, ")") {
			return "", fmt.Errorf("unterminated Q(): %q", s)
		}
		s = strings.TrimSpace(s[2 : len(s)-1])
		if len(s) < 2 || (s[0] != '"' && s[0] != '\'') || s[len(s)-1] != s[0] {
			return "", fmt.Errorf("Q() expects a quoted name, got %q", s)
		}
		return s[1 : len(s)-1], nil
	}

	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1], nil
	}

	return s, nil
}

func quote(name string) string {
	if strings.ContainsAny(name, " +:*~()`'\"") || name == "0" || name == "1" {
		return fmt.Sprintf("Q(%q)", name)
	}
	return name
}
