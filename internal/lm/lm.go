package lm

import (
	"errors"
)

type (
	// Token is a stable integer id into a model vocabulary.
	Token = int

	// Distribution maps token id -> probability, conditioned on some
	// context. Entries are non-negative and sum to 1 within float
	// tolerance. For a fixed context and fixed model state it must be
	// identical across calls, processes and machines: every codec in this
	// repository leans on that determinism.
	Distribution []float64

	// Model is the language-model capability the codecs consume. The
	// backing inference engine is out of scope here; anything satisfying
	// this contract deterministically will do.
	Model interface {
		// Tokenize maps text to token ids, failing with a
		// ErrOutOfVocabulary-wrapped error on unrepresentable input.
		Tokenize(text string) ([]Token, error)
		// Detokenize renders token ids back to text. It is the inverse
		// of Tokenize on tokenizer-canonical text.
		Detokenize(tokens []Token) string
		// Distribution returns the next-token distribution after context.
		Distribution(context []Token) (Distribution, error)
		// VocabSize is the number of token ids; ids are dense in [0, n).
		VocabSize() int
	}
)

// ErrOutOfVocabulary marks tokenization failures: the text contains content
// the model vocabulary cannot represent. Fatal for the single call.
var ErrOutOfVocabulary = errors.New("text outside model vocabulary")

// Canonicalize maps text to its tokenizer-normal form, the form every
// compress/decompress roundtrip preserves exactly.
func Canonicalize(m Model, text string) (string, error) {
	tokens, err := m.Tokenize(text)
	if err != nil {
		return "", err
	}
	return m.Detokenize(tokens), nil
}
