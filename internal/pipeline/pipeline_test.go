package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stegochat/internal/codec"
	"stegochat/internal/cypher"
	"stegochat/internal/lm/ngram"
	"stegochat/internal/model"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	m, err := ngram.Shared()
	require.NoError(t, err)
	p, err := New(m, codec.DefaultSamplerConfig())
	require.NoError(t, err)
	return p
}

func TestBuildContext(t *testing.T) {
	history := []model.Message{
		model.NewMessage(model.SpeakerA, "x").WithDecrypted("hi", nil),
		model.NewMessage(model.SpeakerB, "y").WithDecrypted("hey how are you", nil),
	}
	got := BuildContext(history, model.SpeakerA)
	require.Equal(t, "- A: hi\n- B: hey how are you\n- A:", got)
}

func TestBuildContextUsesRawContentForUnresolved(t *testing.T) {
	history := []model.Message{
		model.NewMessage(model.SpeakerA, "hi"),
	}
	got := BuildContext(history, model.SpeakerB)
	require.Equal(t, "- A: hi\n- B:", got)
}

func TestEncryptDecryptFirstMessage(t *testing.T) {
	p := newTestPipeline(t)
	key := cypher.DeriveKey("pw", cypher.DefaultSalt)

	msg, err := p.Encrypt(key, nil, model.SpeakerA, "hi")
	require.NoError(t, err)
	require.True(t, msg.Decrypted)
	require.Equal(t, "hi", msg.DecryptedContent)
	require.NotEqual(t, "hi", msg.Content)
	require.NotEmpty(t, msg.Fingerprint)

	got, err := p.Decrypt(key, nil, model.NewMessage(model.SpeakerA, msg.Content))
	require.NoError(t, err)
	require.True(t, got.Decrypted)
	require.Equal(t, "hi", got.DecryptedContent)
}

func TestEncryptDecryptConversation(t *testing.T) {
	p := newTestPipeline(t)
	key := cypher.DeriveKey("pw", cypher.DefaultSalt)

	lines := []struct {
		speaker model.Speaker
		text    string
	}{
		{model.SpeakerA, "hi"},
		{model.SpeakerB, "hey how are you"},
		{model.SpeakerA, "pretty good thanks and you"},
		{model.SpeakerB, "not bad just got home from work"},
	}

	var history []model.Message
	for _, l := range lines {
		msg, err := p.Encrypt(key, history, l.speaker, l.text)
		require.NoError(t, err)
		history = append(history, msg)
	}

	// replay the conversation decrypt-side, strictly in order
	var resolved []model.Message
	for i, l := range lines {
		got, err := p.Decrypt(key, resolved, model.NewMessage(l.speaker, history[i].Content))
		require.NoError(t, err)
		require.Equal(t, l.text, got.DecryptedContent)
		resolved = append(resolved, got)
	}
}

func TestEncryptNonceSensitivity(t *testing.T) {
	p := newTestPipeline(t)
	key := cypher.DeriveKey("pw", cypher.DefaultSalt)

	first, err := p.Encrypt(key, nil, model.SpeakerA, "see you there")
	require.NoError(t, err)

	history := []model.Message{first}
	second, err := p.Encrypt(key, history, model.SpeakerA, "see you there")
	require.NoError(t, err)

	require.NotEqual(t, first.Content, second.Content)
}

func TestDecryptWrongKey(t *testing.T) {
	p := newTestPipeline(t)
	key := cypher.DeriveKey("pw", cypher.DefaultSalt)
	wrong := cypher.DeriveKey("not the password", cypher.DefaultSalt)

	msg, err := p.Encrypt(key, nil, model.SpeakerA, "there is a small concert on saturday")
	require.NoError(t, err)

	got, err := p.Decrypt(wrong, nil, model.NewMessage(model.SpeakerA, msg.Content))
	if err == nil {
		// a wrong key must never produce the real plaintext
		require.NotEqual(t, "there is a small concert on saturday", got.DecryptedContent)
	}
}

func TestEncryptPreservesInputs(t *testing.T) {
	p := newTestPipeline(t)
	key := cypher.DeriveKey("pw", cypher.DefaultSalt)

	original := model.NewMessage(model.SpeakerA, "hi").WithDecrypted("hi", nil)
	history := []model.Message{original}

	_, err := p.Encrypt(key, history, model.SpeakerB, "hey how are you")
	require.NoError(t, err)
	require.Equal(t, original, history[0])
}

func TestEncryptOutOfVocabularyPlaintext(t *testing.T) {
	p := newTestPipeline(t)
	key := cypher.DeriveKey("pw", cypher.DefaultSalt)

	_, err := p.Encrypt(key, nil, model.SpeakerA, "entirely unknowable zzzwords")
	require.Error(t, err)
}

func TestFramePrefixTransparent(t *testing.T) {
	p := newTestPipeline(t)
	key := cypher.DeriveKey("pw", cypher.DefaultSalt)

	// leading whitespace is canonicalized away; framing never leaks into
	// the resolved plaintext on either side
	msg, err := p.Encrypt(key, nil, model.SpeakerA, " hi")
	require.NoError(t, err)
	require.Equal(t, "hi", msg.DecryptedContent)

	got, err := p.Decrypt(key, nil, model.NewMessage(model.SpeakerA, msg.Content))
	require.NoError(t, err)
	require.Equal(t, "hi", got.DecryptedContent)
}

func TestDecryptEmptyishMessage(t *testing.T) {
	p := newTestPipeline(t)
	key := cypher.DeriveKey("pw", cypher.DefaultSalt)

	msg, err := p.Encrypt(key, nil, model.SpeakerA, "")
	require.NoError(t, err)

	got, err := p.Decrypt(key, nil, model.NewMessage(model.SpeakerA, msg.Content))
	require.NoError(t, err)
	require.True(t, got.Decrypted)
	require.Equal(t, "", got.DecryptedContent)
}
