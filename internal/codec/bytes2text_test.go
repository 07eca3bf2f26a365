package codec

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stegochat/internal/lm/ngram"
)

func newTestBytes2Text(t *testing.T, cfg SamplerConfig) *Bytes2Text {
	t.Helper()
	m, err := ngram.Shared()
	require.NoError(t, err)
	c, err := NewBytes2Text(m, cfg)
	require.NoError(t, err)
	return c
}

func TestSamplerConfigValidate(t *testing.T) {
	require.NoError(t, DefaultSamplerConfig().Validate())

	bad := DefaultSamplerConfig()
	bad.Temperature = 0
	require.Error(t, bad.Validate())

	bad = DefaultSamplerConfig()
	bad.TopP = 1.5
	require.Error(t, bad.Validate())

	bad = DefaultSamplerConfig()
	bad.TopK = 1
	require.Error(t, bad.Validate())

	bad = DefaultSamplerConfig()
	bad.StopToken = ""
	require.Error(t, bad.Validate())
}

func TestGenerativeRoundtrip(t *testing.T) {
	c := newTestBytes2Text(t, DefaultSamplerConfig())

	cases := [][]byte{
		nil,
		{0x00},
		{0xFF},
		{0x00, 0x00, 0x00},
		{0xDE, 0xAD, 0xBE, 0xEF},
	}
	rng := rand.New(rand.NewSource(42))
	for n := 1; n <= 48; n += 7 {
		buf := make([]byte, n)
		rng.Read(buf)
		cases = append(cases, buf)
	}

	for _, data := range cases {
		text, err := c.Encode(data, "- A: hi\n- B:")
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(text, EndOfMessage))

		got, err := c.Decode(text, "- A: hi\n- B:")
		require.NoError(t, err)
		if len(data) == 0 {
			require.Empty(t, got)
		} else {
			require.Equal(t, data, got)
		}
	}
}

func TestGenerativeRoundtripAcrossConfigs(t *testing.T) {
	configs := []SamplerConfig{
		{Temperature: 0.8, TopP: 0.9, TopK: 32, StopToken: EndOfMessage},
		{Temperature: 1.2, TopP: 1.0, TopK: 16, StopToken: EndOfMessage},
		{Temperature: 1.0, TopP: 0.99, TopK: 128, StopToken: EndOfMessage},
	}

	rng := rand.New(rand.NewSource(99))
	data := make([]byte, 20)
	rng.Read(data)

	for _, cfg := range configs {
		c := newTestBytes2Text(t, cfg)
		text, err := c.Encode(data, "- B: ok cool talk later\n- A:")
		require.NoError(t, err)
		got, err := c.Decode(text, "- B: ok cool talk later\n- A:")
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
}

func TestGenerativeRoundtripEveryShortLength(t *testing.T) {
	c := newTestBytes2Text(t, DefaultSamplerConfig())
	rng := rand.New(rand.NewSource(3))

	// short buffers are where terminator framing earns its keep: every
	// length must both terminate encoding and recover exactly
	for n := 0; n <= 32; n++ {
		for trial := 0; trial < 4; trial++ {
			buf := make([]byte, n)
			rng.Read(buf)

			text, err := c.Encode(buf, "- A:")
			require.NoError(t, err, "len %d trial %d", n, trial)

			got, err := c.Decode(text, "- A:")
			require.NoError(t, err, "len %d trial %d", n, trial)
			if n == 0 {
				require.Empty(t, got)
			} else {
				require.Equal(t, buf, got, "len %d trial %d", n, trial)
			}
		}
	}
}

func TestGenerativeRoundtripBoundaryPatterns(t *testing.T) {
	c := newTestBytes2Text(t, DefaultSamplerConfig())

	// payloads whose bit stream sits on power-of-two boundaries must not
	// stall the coder in underflow renormalization
	cases := [][]byte{
		{0x80},
		{0x80, 0x00},
		{0x00, 0x80},
		{0x7F, 0xFF},
		{0xAA, 0xAA, 0xAA, 0xAA},
		append(make([]byte, 15), 0x01),
	}
	for _, data := range cases {
		text, err := c.Encode(data, "- A: hi\n- B:")
		require.NoError(t, err, "data %x", data)
		got, err := c.Decode(text, "- A: hi\n- B:")
		require.NoError(t, err, "data %x", data)
		require.Equal(t, data, got, "data %x", data)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	c := newTestBytes2Text(t, DefaultSamplerConfig())
	data := []byte{1, 2, 3, 4, 5}

	a, err := c.Encode(data, "- A:")
	require.NoError(t, err)
	b, err := c.Encode(data, "- A:")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDecodeRejectsPlainText(t *testing.T) {
	c := newTestBytes2Text(t, DefaultSamplerConfig())

	// no stop token at all
	_, err := c.Decode("see you tomorrow", "- A:")
	var tokenErr *TokenError
	require.ErrorAs(t, err, &tokenErr)

	// stop token but no payload bits ahead of it
	_, err = c.Decode("\n", "- A:")
	tokenErr = nil
	require.ErrorAs(t, err, &tokenErr)
}

func TestDecodeRejectsMismatchedConfig(t *testing.T) {
	enc := newTestBytes2Text(t, DefaultSamplerConfig())

	strict := DefaultSamplerConfig()
	strict.TopK = 4
	strict.TopP = 0.5
	dec := newTestBytes2Text(t, strict)

	rng := rand.New(rand.NewSource(5))
	data := make([]byte, 24)
	rng.Read(data)

	text, err := enc.Encode(data, "- A:")
	require.NoError(t, err)

	got, err := dec.Decode(text, "- A:")
	if err != nil {
		var tokenErr *TokenError
		require.ErrorAs(t, err, &tokenErr)
	} else {
		require.NotEqual(t, data, got)
	}
}

func TestDecodeWrongContext(t *testing.T) {
	c := newTestBytes2Text(t, DefaultSamplerConfig())

	rng := rand.New(rand.NewSource(11))
	data := make([]byte, 24)
	rng.Read(data)

	text, err := c.Encode(data, "- A: hi\n- B:")
	require.NoError(t, err)

	got, err := c.Decode(text, "- B: good night talk tomorrow\n- A:")
	if err == nil {
		require.NotEqual(t, data, got)
	}
}
