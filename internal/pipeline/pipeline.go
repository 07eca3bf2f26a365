// Package pipeline sequences the disguise codecs and the cypher per message:
// encrypt is compress, encrypt, expand; decrypt is the exact inverse run in
// reverse. Messages are immutable values here; both directions return
// derived copies and never touch their inputs.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"stegochat/internal/codec"
	"stegochat/internal/cypher"
	"stegochat/internal/lm"
	"stegochat/internal/model"
)

// framePrefix is the protocol's single leading space, prepended to content
// before compression and stripped after expansion. It is a wire convention
// both peers must share; under the word-level tokenizer it is whitespace
// carrying no token of its own, and the end-of-message stop symbol is what
// keeps the coded stream non-empty even for an empty message.
const framePrefix = " "

// ErrRoundtripMismatch means the immediate decrypt self-check after
// encryption disagreed with the original plaintext. That is an internal
// defect, never a property of the input.
var ErrRoundtripMismatch = errors.New("roundtrip mismatch after encryption")

type (
	Pipeline struct {
		model lm.Model
		t2b   *codec.Text2Bytes
		b2t   *codec.Bytes2Text
	}
)

func New(m lm.Model, cfg codec.SamplerConfig) (*Pipeline, error) {
	t2b, err := codec.NewText2Bytes(m)
	if err != nil {
		return nil, fmt.Errorf("entropy coder: %w", err)
	}
	b2t, err := codec.NewBytes2Text(m, cfg)
	if err != nil {
		return nil, fmt.Errorf("generative coder: %w", err)
	}
	return &Pipeline{model: m, t2b: t2b, b2t: b2t}, nil
}

// Encrypt disguises plaintext as the next message of the conversation.
// history must hold the resolved prior messages in order; the message's
// nonce is its position, so reordering history invalidates everything after
// it. The result is immediately decrypted again as a self-check before it is
// returned.
func (p *Pipeline) Encrypt(key cypher.Key, history []model.Message, speaker model.Speaker, plaintext string) (model.Message, error) {
	canon, err := lm.Canonicalize(p.model, plaintext)
	if err != nil {
		return model.Message{}, fmt.Errorf("canonicalize plaintext: %w", err)
	}
	ctx := BuildContext(history, speaker)

	packed, err := p.t2b.Compress(framePrefix+canon, ctx)
	if err != nil {
		return model.Message{}, fmt.Errorf("compress: %w", err)
	}
	sealed, err := cypher.Encrypt(key, packed, uint64(len(history)))
	if err != nil {
		return model.Message{}, fmt.Errorf("encrypt: %w", err)
	}
	disguised, err := p.b2t.Encode(sealed, ctx)
	if err != nil {
		return model.Message{}, fmt.Errorf("expand: %w", err)
	}

	check, err := p.Decrypt(key, history, model.NewMessage(speaker, disguised))
	if err != nil {
		return model.Message{}, fmt.Errorf("roundtrip self-check: %w", err)
	}
	if check.DecryptedContent != canon {
		return model.Message{}, ErrRoundtripMismatch
	}

	fp, err := cypher.Fingerprint(key)
	if err != nil {
		return model.Message{}, err
	}
	return model.NewMessage(speaker, disguised).WithDecrypted(canon, fp), nil
}

// Decrypt attempts to resolve one disguised message against the given
// resolved history. Codec errors (TokenError, decoding faults) pass through
// untouched so the caller can tell "wrong key or foreign text" apart from
// real failures.
func (p *Pipeline) Decrypt(key cypher.Key, history []model.Message, msg model.Message) (model.Message, error) {
	ctx := BuildContext(history, msg.Speaker)

	sealed, err := p.b2t.Decode(msg.Content, ctx)
	if err != nil {
		return model.Message{}, fmt.Errorf("contract: %w", err)
	}
	packed, err := cypher.Decrypt(key, sealed, uint64(len(history)))
	if err != nil {
		return model.Message{}, fmt.Errorf("decrypt: %w", err)
	}
	text, err := p.t2b.Decompress(packed, ctx)
	if err != nil {
		return model.Message{}, fmt.Errorf("decompress: %w", err)
	}

	fp, err := cypher.Fingerprint(key)
	if err != nil {
		return model.Message{}, err
	}
	return msg.WithDecrypted(strings.TrimPrefix(text, framePrefix), fp), nil
}
