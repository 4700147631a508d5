package chunk

import (
	"regexp"
	"strings"
)

const (
	priorityH1        = 100
	priorityH2        = 90
	priorityH3        = 80
	priorityFence     = 80
	priorityRule      = 60
	priorityParagraph = 20
	priorityListItem  = 5
	priorityNewline   = 1
)

var (
	h1Pattern        = regexp.MustCompile(`(?m)^# .*$`)
	h2Pattern        = regexp.MustCompile(`(?m)^## .*$`)
	h3Pattern        = regexp.MustCompile(`(?m)^### .*$`)
	rulePattern      = regexp.MustCompile(`(?m)^(?:-{3,}|\*{3,}|_{3,})\s*$`)
	listItemPattern  = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s`)
	paragraphPattern = regexp.MustCompile(`\n[ \t]*\n`)
	fencePattern     = regexp.MustCompile("(?s)```.*?```")
)

type span struct{ start, end int }

type breakPoint struct {
	pos      int
	priority int
}

// Chunk splits content into token-bounded pieces, preferring to break at
// heading, code-fence, rule, and paragraph boundaries over raw newlines.
// Empty or whitespace-only content yields no pieces.
func Chunk(content string, opts Options) []Piece {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.OverlapTokens <= 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	maxChars := TokensPerChar * opts.MaxTokens
	overlapChars := TokensPerChar * opts.OverlapTokens
	spans := fencedCodeSpans(content)
	candidates := buildCandidates(content, spans)

	n := len(content)
	var pieces []Piece
	pos := 0
	seq := 0

	for pos < n {
		targetEnd := pos + maxChars
		last := false
		if targetEnd >= n {
			targetEnd = n
			last = true
		}

		chunkEnd := targetEnd
		if !last {
			if bp := chooseBreakPoint(candidates, pos, targetEnd, maxChars); bp > 0 {
				chunkEnd = bp
			}
		}
		if sp := enclosingSpan(chunkEnd, spans); sp != nil {
			chunkEnd = sp.end
		}

		if chunkEnd <= pos {
			if remainder := strings.TrimSpace(content[pos:]); remainder != "" {
				pieces = append(pieces, Piece{Seq: seq, Pos: pos, TokenCount: estimateTokens(remainder), Text: remainder})
			}
			break
		}

		if text := strings.TrimSpace(content[pos:chunkEnd]); text != "" {
			pieces = append(pieces, Piece{Seq: seq, Pos: pos, TokenCount: estimateTokens(text), Text: text})
			seq++
		}

		if chunkEnd >= n {
			break
		}

		nextPos := chunkEnd - overlapChars
		if half := pos + (chunkEnd-pos)/2; half > nextPos {
			nextPos = half
		}
		if sp := enclosingSpan(nextPos, spans); sp != nil {
			if sp.start > pos {
				nextPos = sp.start
			} else {
				nextPos = sp.end
			}
		}
		if pos+1 > nextPos {
			nextPos = pos + 1
		}
		if nextPos >= n {
			break
		}
		pos = nextPos
	}
	return pieces
}

// estimateTokens approximates token count from character count; never
// reports zero for non-empty text.
func estimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len(text) / TokensPerChar
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

func fencedCodeSpans(content string) []span {
	matches := fencePattern.FindAllStringIndex(content, -1)
	spans := make([]span, len(matches))
	for i, m := range matches {
		spans[i] = span{start: m[0], end: m[1]}
	}
	return spans
}

func insideSpan(pos int, spans []span) bool {
	return enclosingSpan(pos, spans) != nil
}

func enclosingSpan(pos int, spans []span) *span {
	for i, s := range spans {
		if pos > s.start && pos < s.end {
			return &spans[i]
		}
	}
	return nil
}

// buildCandidates enumerates every candidate break point in content by
// pattern, skipping any position that falls strictly inside a fenced
// code span.
func buildCandidates(content string, spans []span) []breakPoint {
	var points []breakPoint

	addStart := func(matches [][]int, priority int) {
		for _, m := range matches {
			if insideSpan(m[0], spans) {
				continue
			}
			points = append(points, breakPoint{pos: m[0], priority: priority})
		}
	}
	addEnd := func(matches [][]int, priority int) {
		for _, m := range matches {
			if insideSpan(m[1], spans) {
				continue
			}
			points = append(points, breakPoint{pos: m[1], priority: priority})
		}
	}

	addStart(h1Pattern.FindAllStringIndex(content, -1), priorityH1)
	addStart(h2Pattern.FindAllStringIndex(content, -1), priorityH2)
	addStart(h3Pattern.FindAllStringIndex(content, -1), priorityH3)
	addStart(rulePattern.FindAllStringIndex(content, -1), priorityRule)
	addStart(listItemPattern.FindAllStringIndex(content, -1), priorityListItem)
	addEnd(paragraphPattern.FindAllStringIndex(content, -1), priorityParagraph)

	for _, s := range spans {
		if !insideSpan(s.start, spans) {
			points = append(points, breakPoint{pos: s.start, priority: priorityFence})
		}
		if !insideSpan(s.end, spans) {
			points = append(points, breakPoint{pos: s.end, priority: priorityFence})
		}
	}

	for i := 0; i < len(content); i++ {
		if content[i] != '\n' {
			continue
		}
		pos := i + 1
		if !insideSpan(pos, spans) {
			points = append(points, breakPoint{pos: pos, priority: priorityNewline})
		}
	}

	return points
}

// chooseBreakPoint returns the candidate in (pos, targetEnd] maximising
// priority * (1 - (|bp - targetEnd| / maxChars)^2), or 0 if none exist.
func chooseBreakPoint(candidates []breakPoint, pos, targetEnd, maxChars int) int {
	best := 0
	bestScore := -1.0
	for _, c := range candidates {
		if c.pos <= pos || c.pos > targetEnd {
			continue
		}
		diff := float64(abs(c.pos-targetEnd)) / float64(maxChars)
		score := float64(c.priority) * (1 - diff*diff)
		if score > bestScore {
			bestScore = score
			best = c.pos
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
