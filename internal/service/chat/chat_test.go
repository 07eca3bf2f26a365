package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stegochat/internal/codec"
	"stegochat/internal/cypher"
	"stegochat/internal/lm/ngram"
	"stegochat/internal/model"
	"stegochat/internal/pipeline"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	m, err := ngram.Shared()
	require.NoError(t, err)
	p, err := pipeline.New(m, codec.DefaultSamplerConfig())
	require.NoError(t, err)
	return NewService(p)
}

func TestEncryptThenDecryptAll(t *testing.T) {
	s := newTestService(t)

	msg, err := s.EncryptNew("pw", nil, model.SpeakerA, "hi")
	require.NoError(t, err)
	require.Equal(t, "hi", msg.DecryptedContent)

	// the receiving side sees only the disguised content
	wire := model.NewMessage(model.SpeakerA, msg.Content)
	out, err := s.DecryptAll("pw", []model.Message{wire})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].Decrypted)
	require.Equal(t, "hi", out[0].DecryptedContent)
	require.NotEmpty(t, out[0].Fingerprint)
}

func TestDecryptAllForeignMessage(t *testing.T) {
	s := newTestService(t)

	// plain chat text that never went through EncryptNew
	foreign := model.NewMessage(model.SpeakerB, "see you tomorrow")
	out, err := s.DecryptAll("pw", []model.Message{foreign})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.False(t, out[0].Decrypted)
	require.Empty(t, out[0].DecryptedContent)
	require.NotEmpty(t, out[0].Fingerprint)
}

func TestDecryptAllShortCircuitsOnFingerprint(t *testing.T) {
	s := newTestService(t)

	key := cypher.DeriveKey("pw", cypher.DefaultSalt)
	fp, err := cypher.Fingerprint(key)
	require.NoError(t, err)

	// content that would fail hard if the pipeline actually ran on it
	cached := model.Message{
		Speaker:          model.SpeakerA,
		Content:          "@@not even tokenizable@@",
		DecryptedContent: "hi",
		Decrypted:        true,
		Fingerprint:      fp,
	}

	out, err := s.DecryptAll("pw", []model.Message{cached})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, cached, out[0])
}

func TestDecryptAllMixedConversation(t *testing.T) {
	s := newTestService(t)

	first, err := s.EncryptNew("pw", nil, model.SpeakerA, "hi")
	require.NoError(t, err)

	prior := []model.Message{first}
	second, err := s.EncryptNew("pw", prior, model.SpeakerB, "hey how are you")
	require.NoError(t, err)

	// receiving side: disguised copies plus one foreign plaintext message
	wire := []model.Message{
		model.NewMessage(model.SpeakerA, first.Content),
		model.NewMessage(model.SpeakerB, second.Content),
		model.NewMessage(model.SpeakerA, "see you tomorrow"),
	}
	out, err := s.DecryptAll("pw", wire)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "hi", out[0].DecryptedContent)
	require.Equal(t, "hey how are you", out[1].DecryptedContent)
	require.False(t, out[2].Decrypted)
	require.NotEmpty(t, out[2].Fingerprint)
}

func TestDecryptAllWrongPassword(t *testing.T) {
	s := newTestService(t)

	msg, err := s.EncryptNew("pw", nil, model.SpeakerA, "we should plan a trip soon")
	require.NoError(t, err)

	wire := []model.Message{model.NewMessage(model.SpeakerA, msg.Content)}
	out, err := s.DecryptAll("wrong password", wire)
	require.NoError(t, err)
	require.Len(t, out, 1)
	if out[0].Decrypted {
		// wrong key must never yield the true plaintext
		require.NotEqual(t, "we should plan a trip soon", out[0].DecryptedContent)
	} else {
		require.NotEmpty(t, out[0].Fingerprint)
	}
}
