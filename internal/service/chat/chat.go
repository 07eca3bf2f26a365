// Package chat is the host-facing boundary of the disguise pipeline. It owns
// the password-to-key step, the fingerprint short-circuit, and the policy
// that turns codec-level rejections into non-fatal "undecryptable" results
// while letting every other error escape untouched.
package chat

import (
	"bytes"
	"errors"
	"fmt"

	"stegochat/internal/codec"
	"stegochat/internal/cypher"
	"stegochat/internal/model"
	"stegochat/internal/pipeline"
)

type (
	Service struct {
		pipe *pipeline.Pipeline
	}
)

func NewService(pipe *pipeline.Pipeline) *Service {
	return &Service{pipe: pipe}
}

// EncryptNew disguises plaintext as the next message after prior. prior must
// be resolved (decrypted) history; processing within one conversation is
// strictly sequential.
func (s *Service) EncryptNew(password string, prior []model.Message, speaker model.Speaker, plaintext string) (model.Message, error) {
	key := cypher.DeriveKey(password, cypher.DefaultSalt)
	return s.pipe.Encrypt(key, prior, speaker, plaintext)
}

// DecryptAll resolves a conversation in order. Messages whose fingerprint
// already matches the derived key are returned as cached results without
// re-running the codecs. A message the codecs reject is returned with an
// absent decrypted content and a populated fingerprint, and never aborts its
// siblings; any other failure aborts the whole pass.
func (s *Service) DecryptAll(password string, msgs []model.Message) ([]model.Message, error) {
	key := cypher.DeriveKey(password, cypher.DefaultSalt)
	fp, err := cypher.Fingerprint(key)
	if err != nil {
		return nil, err
	}

	out := make([]model.Message, 0, len(msgs))
	for i, m := range msgs {
		if bytes.Equal(m.Fingerprint, fp) {
			out = append(out, m)
			continue
		}

		res, err := s.pipe.Decrypt(key, out, m)
		if err != nil {
			if isUndecryptable(err) {
				out = append(out, m.WithFingerprint(fp))
				continue
			}
			return nil, fmt.Errorf("decrypt message %d: %w", i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// isUndecryptable matches the two recoverable codec rejections: a token
// outside its candidate set and an entropy-coder decoding fault. Both mean
// "not encrypted with this key and context", not "something is broken".
func isUndecryptable(err error) bool {
	var tokenErr *codec.TokenError
	var faultErr *codec.DecodingFaultError
	return errors.As(err, &tokenErr) || errors.As(err, &faultErr)
}
