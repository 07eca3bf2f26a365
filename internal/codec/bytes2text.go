package codec

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"stegochat/internal/lm"
)

type (
	// SamplerConfig shapes the restricted distribution the generative
	// coder draws from. Temperature scales probabilities before
	// truncation, TopK bounds candidate-set size, TopP bounds candidate
	// cumulative mass, StopToken is the literal delimiter appended after
	// the payload (shared with context rendering). Both sides of a
	// conversation must use identical values or decoding fails.
	SamplerConfig struct {
		Temperature float64
		TopP        float64
		TopK        int
		StopToken   string
	}

	// Bytes2Text is the generative steganographic coder: it expands
	// arbitrary bytes into text that reads like model output, and
	// contracts such text back into the exact original bytes.
	Bytes2Text struct {
		model lm.Model
		cfg   SamplerConfig
		stop  lm.Token
	}
)

func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Temperature: 1.0,
		TopP:        0.95,
		TopK:        64,
		StopToken:   EndOfMessage,
	}
}

func (c SamplerConfig) Validate() error {
	if c.Temperature <= 0 {
		return fmt.Errorf("temperature %v, must be > 0", c.Temperature)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("topP %v, must be in (0, 1]", c.TopP)
	}
	if c.TopK < 2 {
		return fmt.Errorf("topK %d, must be >= 2", c.TopK)
	}
	if c.StopToken == "" {
		return errors.New("stop token must not be empty")
	}
	return nil
}

func NewBytes2Text(m lm.Model, cfg SamplerConfig) (*Bytes2Text, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sampler config: %w", err)
	}
	stop, err := resolveToken(m, cfg.StopToken)
	if err != nil {
		return nil, fmt.Errorf("resolve stop token: %w", err)
	}
	return &Bytes2Text{model: m, cfg: cfg, stop: stop}, nil
}

// restricted builds the candidate buckets for one generation step:
// temperature scaling, top-k truncation, nucleus truncation, renormalization.
// The stop token is reserved as terminator and never a candidate, so payload
// text cannot contain an embedded delimiter.
func (c *Bytes2Text) restricted(dist lm.Distribution) (buckets, error) {
	type candidate struct {
		id lm.Token
		w  float64
	}

	cands := make([]candidate, 0, len(dist))
	for id, p := range dist {
		if lm.Token(id) == c.stop || p <= 0 {
			continue
		}
		w := p
		if c.cfg.Temperature != 1 {
			w = math.Pow(p, 1/c.cfg.Temperature)
		}
		cands = append(cands, candidate{id: lm.Token(id), w: w})
	}
	if len(cands) == 0 {
		return buckets{}, errors.New("empty candidate set")
	}

	sort.Slice(cands, func(a, b int) bool {
		if cands[a].w != cands[b].w {
			return cands[a].w > cands[b].w
		}
		return cands[a].id < cands[b].id
	})
	if len(cands) > c.cfg.TopK {
		cands = cands[:c.cfg.TopK]
	}

	var total float64
	for _, cd := range cands {
		total += cd.w
	}
	keep := len(cands)
	cum := 0.0
	for i, cd := range cands {
		if i > 0 && cum >= c.cfg.TopP*total {
			keep = i
			break
		}
		cum += cd.w
	}
	cands = cands[:keep]

	sort.Slice(cands, func(a, b int) bool { return cands[a].id < cands[b].id })
	ids := make([]lm.Token, len(cands))
	probs := make([]float64, len(cands))
	for i, cd := range cands {
		ids[i] = cd.id
		probs[i] = cd.w
	}
	return newBuckets(ids, probs), nil
}

// terminatorByte follows the payload on the coder's bit stream: a 1
// terminator marking the end of the data bits, then a 1 guard bit. The guard
// keeps the stream value strictly inside the terminator's bit interval, so
// interval renormalization always commits the terminator in finitely many
// steps; without it the value sits exactly on a binary boundary and the
// coder accumulates underflow forever.
const terminatorByte = 0xC0

// Encode expands the byte payload into model tokens by running the range
// coder in reverse: the payload (data bits, then terminator) is treated as
// the code stream, and each step selects the restricted-distribution bucket
// the stream value falls into, exactly the way Decompress selects symbols.
// Tokens are produced until every data bit and the terminator have been
// committed, then the stop token is appended. No length prefix is
// transmitted; Decode recovers the byte boundary from the terminator.
func (c *Bytes2Text) Encode(data []byte, context string) (string, error) {
	ctxTokens, err := c.model.Tokenize(context)
	if err != nil {
		return "", fmt.Errorf("tokenize context: %w", err)
	}

	totalBits := len(data)*8 + 1
	maxSteps := 64*totalBits + 256

	stream := make([]byte, 0, len(data)+1)
	stream = append(stream, data...)
	stream = append(stream, terminatorByte)

	dec := newRangeDecoder(stream)
	// shadow mirrors the re-encoding Decode will run; its committed bits
	// are exactly the stream prefix the produced tokens pin down.
	shadow := rangeEncoder{high: codeMax}

	work := append([]lm.Token(nil), ctxTokens...)
	var out []lm.Token
	for shadow.w.written() < totalBits {
		if len(out) > maxSteps {
			return "", fmt.Errorf("expansion bound exceeded after %d tokens", len(out))
		}
		dist, err := c.model.Distribution(work)
		if err != nil {
			return "", fmt.Errorf("model distribution: %w", err)
		}
		bk, err := c.restricted(dist)
		if err != nil {
			return "", err
		}

		i := bk.locate(dec.target())
		lo, hi := bk.bounds(i)
		dec.consume(lo, hi)
		shadow.encode(lo, hi)

		tok := bk.ids[i]
		out = append(out, tok)
		work = append(work, tok)
	}

	out = append(out, c.stop)
	return c.model.Detokenize(out), nil
}

// Decode inverts Encode: every token before the terminating stop token is
// range encoded against the identical restricted distribution, and the
// committed bits of that encoding are the payload stream Encode consumed. A
// token outside its step's candidate set, a missing stop token or malformed
// terminator framing all mean the text was not produced by Encode under
// this context and configuration.
func (c *Bytes2Text) Decode(text, context string) ([]byte, error) {
	ctxTokens, err := c.model.Tokenize(context)
	if err != nil {
		return nil, fmt.Errorf("tokenize context: %w", err)
	}
	msgTokens, err := c.model.Tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("tokenize message: %w", err)
	}

	work := append([]lm.Token(nil), ctxTokens...)
	enc := rangeEncoder{high: codeMax}
	stopAt := -1
	for pos, tok := range msgTokens {
		if tok == c.stop {
			stopAt = pos
			break
		}
		dist, err := c.model.Distribution(work)
		if err != nil {
			return nil, fmt.Errorf("model distribution: %w", err)
		}
		bk, err := c.restricted(dist)
		if err != nil {
			return nil, err
		}

		i, ok := bk.indexOf(tok)
		if !ok {
			return nil, &TokenError{Position: pos, Token: tok, Reason: "token outside candidate set"}
		}
		lo, hi := bk.bounds(i)
		enc.encode(lo, hi)
		work = append(work, tok)
	}
	if stopAt < 0 {
		return nil, &TokenError{Position: len(msgTokens), Token: c.stop, Reason: "stop token not found"}
	}
	if stopAt != len(msgTokens)-1 {
		return nil, &TokenError{Position: stopAt, Token: c.stop, Reason: "content after stop token"}
	}

	// Only committed bits are pinned down by the tokens; the coder's
	// pending underflow state is not, so finish() is never called here.
	n := enc.w.written()
	buf := enc.w.bytes()

	// strip the zero tail, then the terminator (and, when the interval
	// landed exactly on the stream value, the guard bit behind it)
	end := n - 1
	for end >= 0 && bitAt(buf, end) == 0 {
		end--
	}
	if end < 0 {
		return nil, &TokenError{Position: stopAt, Token: c.stop, Reason: "payload terminator missing"}
	}
	var dataBits int
	switch {
	case end%8 == 0:
		dataBits = end
	case end >= 1 && end%8 == 1 && bitAt(buf, end-1) == 1:
		dataBits = end - 1
	default:
		return nil, &TokenError{Position: stopAt, Token: c.stop, Reason: "payload not byte aligned"}
	}

	data := make([]byte, dataBits/8)
	for i := 0; i < dataBits; i++ {
		if bitAt(buf, i) != 0 {
			data[i/8] |= 1 << (7 - i%8)
		}
	}
	return data, nil
}
