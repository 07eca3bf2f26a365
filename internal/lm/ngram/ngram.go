// Package ngram provides the default LanguageModel implementation: a
// word-level bigram model with additive smoothing over an embedded
// conversational corpus. It is deliberately small; what matters to the rest
// of the system is not fluency but bit-exact determinism of Distribution for
// a fixed context.
package ngram

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"stegochat/internal/lm"
)

// eomText is the end-of-message delimiter; it is a regular vocabulary token
// so context rendering, compression and generation all share it.
const eomText = "\n"

// smoothing is the additive (Laplace) mass granted to every vocabulary token
// in every context, which keeps all tokens representable by the entropy coder.
const smoothing = 0.5

type (
	Model struct {
		words    []string            // id -> token text
		ids      map[string]lm.Token // token text -> id
		bigram   [][]uint32          // bigram[prev][next] = count
		rowTotal []uint32            // sum over bigram[prev]
		unigram  []uint32            // counts, used for empty context
		uniTotal uint32
	}
)

// New builds a model from training text. The text must be non-empty and
// contain the end-of-message delimiter at least once.
func New(text string) (*Model, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty training text")
	}

	m := &Model{
		ids: make(map[string]lm.Token),
	}

	tokens := m.scan(text, true)
	if _, ok := m.ids[eomText]; !ok {
		return nil, errors.New("training text contains no end-of-message delimiter")
	}

	n := len(m.words)
	m.bigram = make([][]uint32, n)
	for i := range m.bigram {
		m.bigram[i] = make([]uint32, n)
	}
	m.rowTotal = make([]uint32, n)
	m.unigram = make([]uint32, n)

	for i, tok := range tokens {
		m.unigram[tok]++
		m.uniTotal++
		if i > 0 {
			prev := tokens[i-1]
			m.bigram[prev][tok]++
			m.rowTotal[prev]++
		}
	}
	return m, nil
}

// scan splits text into word and delimiter tokens. Spaces separate words and
// carry no token of their own; the delimiter is its own token. With grow set,
// unseen words are added to the vocabulary, otherwise they map to -1.
func (m *Model) scan(text string, grow bool) []lm.Token {
	tokens := make([]lm.Token, 0, len(text)/4)
	for i := 0; i < len(text); {
		switch text[i] {
		case ' ':
			i++
		case '\n':
			tokens = append(tokens, m.intern(eomText, grow))
			i++
		default:
			j := i
			for j < len(text) && text[j] != ' ' && text[j] != '\n' {
				j++
			}
			tokens = append(tokens, m.intern(text[i:j], grow))
			i = j
		}
	}
	return tokens
}

func (m *Model) intern(word string, grow bool) lm.Token {
	if id, ok := m.ids[word]; ok {
		return id
	}
	if !grow {
		return -1
	}
	id := lm.Token(len(m.words))
	m.words = append(m.words, word)
	m.ids[word] = id
	return id
}

func (m *Model) Tokenize(text string) ([]lm.Token, error) {
	tokens := m.scan(text, false)
	for i, tok := range tokens {
		if tok < 0 {
			return nil, fmt.Errorf("%w: token %d of %q", lm.ErrOutOfVocabulary, i, text)
		}
	}
	return tokens, nil
}

func (m *Model) Detokenize(tokens []lm.Token) string {
	var b strings.Builder
	lineStart := true
	for _, tok := range tokens {
		if tok < 0 || tok >= len(m.words) {
			continue
		}
		word := m.words[tok]
		if word == eomText {
			b.WriteString(eomText)
			lineStart = true
			continue
		}
		if !lineStart {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		lineStart = false
	}
	return b.String()
}

// Distribution returns smoothed bigram probabilities conditioned on the last
// context token, or smoothed unigram probabilities for an empty context. The
// computation is a fixed sequence of float64 operations over integer counts,
// so identical context always yields identical probabilities.
func (m *Model) Distribution(context []lm.Token) (lm.Distribution, error) {
	n := len(m.words)
	var row []uint32
	var rowTotal uint32
	if len(context) == 0 {
		row = m.unigram
		rowTotal = m.uniTotal
	} else {
		prev := context[len(context)-1]
		if prev < 0 || prev >= n {
			return nil, fmt.Errorf("context token %d out of range [0, %d)", prev, n)
		}
		row = m.bigram[prev]
		rowTotal = m.rowTotal[prev]
	}

	den := float64(rowTotal) + smoothing*float64(n)
	dist := make(lm.Distribution, n)
	for i := 0; i < n; i++ {
		dist[i] = (float64(row[i]) + smoothing) / den
	}
	return dist, nil
}

func (m *Model) VocabSize() int {
	return len(m.words)
}

var (
	sharedModel atomic.Pointer[Model]
	sharedGroup singleflight.Group
)

// Shared returns the process-wide model built from the embedded corpus.
// Loading is lazy and single-flight: concurrent first callers all await one
// build and receive the same instance.
func Shared() (*Model, error) {
	if m := sharedModel.Load(); m != nil {
		return m, nil
	}
	v, err, _ := sharedGroup.Do("shared", func() (interface{}, error) {
		if m := sharedModel.Load(); m != nil {
			return m, nil
		}
		m, err := New(corpus)
		if err != nil {
			return nil, err
		}
		sharedModel.Store(m)
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load shared model: %w", err)
	}
	return v.(*Model), nil
}

// Reset drops the shared instance; the next Shared call rebuilds it.
func Reset() {
	sharedModel.Store(nil)
}
