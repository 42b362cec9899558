package tui

import (
	"strings"
	"sync"
)

// Some terminal fonts render symbols poorly; the ASCII set is the fallback.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

// applyGlyphPreference takes the tui.glyphs setting. Unknown values are
// ignored.
func applyGlyphPreference(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	defer glyphsMu.RUnlock()
	return currentGlyphs
}

func pick(unicode, ascii string) string {
	if glyphs() == glyphSetASCII {
		return ascii
	}
	return unicode
}

func glyphPin() string       { return pick("📌", "*") }
func glyphArchive() string   { return pick("▤", "#") }
func glyphBullet() string    { return pick("•", "-") }
func glyphSeparator() string { return pick("·", "|") }
func glyphCursor() string    { return pick("▸", ">") }
