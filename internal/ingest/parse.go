package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cosmiclasagnadev/zmem/internal/memory"
)

var (
	h1Pattern = regexp.MustCompile(`(?m)^#\s+(.+?)\s*$`)
	h2Pattern = regexp.MustCompile(`(?m)^##\s+(.+?)\s*$`)
)

const frontmatterDelim = "---"

// frontmatter is the recognised YAML frontmatter block.
type frontmatter struct {
	Title      string   `yaml:"title"`
	Tags       []string `yaml:"tags"`
	Type       string   `yaml:"type"`
	Date       string   `yaml:"date"`
	Importance *float64 `yaml:"importance"`
}

// ParsedDocument is the parse stage's output, ready for chunking.
type ParsedDocument struct {
	Source      string
	Title       string
	Content     string
	Tags        []string
	Type        memory.Type
	Importance  float64
	ContentHash string
}

// ParseDocument parses raw file bytes into a ParsedDocument. relPath is
// used both as the Source and as the filename fallback for title
// extraction.
func ParseDocument(relPath string, raw []byte) (*ParsedDocument, error) {
	hash := sha256.Sum256(raw)

	text := stripBOM(raw)
	text = normalizeLineEndings(text)

	fm, body := splitFrontmatter(text)

	typ := memory.Type(fm.Type)
	if !typ.Valid() {
		typ = memory.TypeFact
	}

	importance := 0.5
	if fm.Importance != nil {
		importance = *fm.Importance
	}

	return &ParsedDocument{
		Source:      relPath,
		Title:       extractTitle(fm, body, relPath),
		Content:     strings.TrimSpace(body),
		Tags:        fm.Tags,
		Type:        typ,
		Importance:  importance,
		ContentHash: hex.EncodeToString(hash[:]),
	}, nil
}

func stripBOM(raw []byte) string {
	const bom = "﻿"
	s := string(raw)
	return strings.TrimPrefix(s, bom)
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// document body. A document with no frontmatter yields a zero-value
// frontmatter and the full text as body.
func splitFrontmatter(text string) (frontmatter, string) {
	var fm frontmatter

	trimmed := strings.TrimLeft(text, "\n")
	if !strings.HasPrefix(trimmed, frontmatterDelim) {
		return fm, text
	}

	rest := trimmed[len(frontmatterDelim):]
	rest = strings.TrimPrefix(rest, "\n")
	closeIdx := strings.Index(rest, "\n"+frontmatterDelim)
	if closeIdx == -1 {
		return fm, text
	}

	block := rest[:closeIdx]
	body := rest[closeIdx+1+len(frontmatterDelim):]
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return frontmatter{}, text
	}
	return fm, body
}

// extractTitle resolves the title by priority: frontmatter.title, first H1
// (skipping a generic "Notes" heading), first H2, then the filename
// without its extension.
func extractTitle(fm frontmatter, body, relPath string) string {
	if t := strings.TrimSpace(fm.Title); t != "" {
		return t
	}

	for _, m := range h1Pattern.FindAllStringSubmatch(body, -1) {
		heading := strings.TrimSpace(m[1])
		if strings.EqualFold(heading, "Notes") {
			continue
		}
		if heading != "" {
			return heading
		}
	}

	if m := h2Pattern.FindStringSubmatch(body); m != nil {
		if heading := strings.TrimSpace(m[1]); heading != "" {
			return heading
		}
	}

	base := relPath
	if idx := strings.LastIndexAny(base, "/\\"); idx != -1 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}
