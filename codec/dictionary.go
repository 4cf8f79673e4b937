package codec

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/BillPolly/adaptcache/errors"
)

// dictEntryOverhead approximates the per-entry serialization cost of the
// dictionary (quotes, separators) so the savings check accounts for carrying
// the dictionary alongside the data.
const dictEntryOverhead = 6

// minTokenOccurrences is the occurrence count a token must exceed to earn a
// dictionary slot.
const minTokenOccurrences = 2

// tokenPattern matches word-like tokens: maximal runs of at least three
// identifier characters. Runs are maximal, so substitution never splits a
// longer word that happens to contain a shorter token.
var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]{3,}`)

// placeholderPattern matches the NUL-delimited placeholders the dictionary
// codec writes. Input containing a NUL byte is never compressed, so every
// match in a package is a real placeholder.
var placeholderPattern = regexp.MustCompile("\x00[0-9]+\x00")

// Dictionary is a token-substitution codec for textual payloads. It builds a
// frequency table of word-like tokens, replaces frequent ones with short
// placeholders, and ships the reverse mapping with the data. The zero value
// can decompress any dictionary package; use NewDictionary for compressing.
type Dictionary struct {
	cfg Config
}

// NewDictionary creates a dictionary codec with the given configuration
func NewDictionary(cfg Config) *Dictionary {
	return &Dictionary{cfg: cfg}
}

// Name returns the algorithm identifier
func (d *Dictionary) Name() Algorithm {
	return AlgorithmDictionary
}

// Compress rewrites frequent tokens into placeholders. It declines byte
// payloads, payloads outside the size limits, payloads containing NUL (the
// placeholder delimiter), and anything where the packaged form does not
// clear the savings bar.
func (d *Dictionary) Compress(kind Kind, data []byte) (*Package, bool) {
	if kind == KindBytes {
		return nil, false
	}
	if !d.cfg.withinLimits(len(data)) {
		return nil, false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, false
	}

	text := string(data)
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(text, -1) {
		counts[tok]++
	}

	type candidate struct {
		token string
		count int
	}
	candidates := make([]candidate, 0, len(counts))
	for tok, n := range counts {
		if n > minTokenOccurrences {
			candidates = append(candidates, candidate{token: tok, count: n})
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	// Highest expected savings first; ties broken lexically for determinism.
	sort.Slice(candidates, func(i, j int) bool {
		gi := candidates[i].count * len(candidates[i].token)
		gj := candidates[j].count * len(candidates[j].token)
		if gi != gj {
			return gi > gj
		}
		return candidates[i].token < candidates[j].token
	})

	forward := make(map[string]string) // token -> placeholder
	reverse := make(map[string]string) // placeholder -> token
	index := 0
	for _, c := range candidates {
		placeholder := fmt.Sprintf("\x00%d\x00", index)
		saved := c.count * (len(c.token) - len(placeholder))
		cost := len(c.token) + len(placeholder) + dictEntryOverhead
		if saved <= cost {
			continue
		}
		forward[c.token] = placeholder
		reverse[placeholder] = c.token
		index++
	}
	if len(forward) == 0 {
		return nil, false
	}

	rewritten := tokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		if ph, ok := forward[tok]; ok {
			return ph
		}
		return tok
	})

	pkg := &Package{
		Algorithm:    AlgorithmDictionary,
		Kind:         kind,
		Data:         []byte(rewritten),
		Dict:         reverse,
		OriginalSize: len(data),
	}
	if !d.cfg.worthKeeping(len(data), pkg.Size()) {
		return nil, false
	}
	return pkg, true
}

// Decompress substitutes placeholders back to their tokens. A placeholder
// without a dictionary entry, or a stray NUL in the result, marks the
// package as corrupted.
func (d *Dictionary) Decompress(pkg *Package) ([]byte, error) {
	if pkg == nil || pkg.Algorithm != AlgorithmDictionary {
		return nil, errors.WrapError("Decompress", nil, errors.ErrDecompression)
	}

	missing := false
	restored := placeholderPattern.ReplaceAllStringFunc(string(pkg.Data), func(ph string) string {
		tok, ok := pkg.Dict[ph]
		if !ok {
			missing = true
			return ph
		}
		return tok
	})
	if missing || strings.IndexByte(restored, 0) >= 0 {
		return nil, errors.WrapError("Decompress", nil, errors.ErrDecompression)
	}
	return []byte(restored), nil
}
