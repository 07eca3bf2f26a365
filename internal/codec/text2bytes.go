package codec

import (
	"bytes"
	"fmt"

	"stegochat/internal/lm"
)

// EndOfMessage is the literal delimiter shared by context rendering, the
// entropy coder's stop symbol and the generative coder's stop token.
const EndOfMessage = "\n"

const (
	codeBits    = 32
	codeMax     = uint64(1)<<codeBits - 1
	codeHalf    = uint64(1) << (codeBits - 1)
	codeQuarter = uint64(1) << (codeBits - 2)

	// maxDecodeTokens bounds pathological expansion when decompressing
	// bytes that were never produced by Compress.
	maxDecodeTokens = 4096

	// maxDecodeOverrun is how far past the end of the byte stream the
	// decoder may read before the stream is declared exhausted. A genuine
	// stream never needs more than the code register width plus one
	// symbol's worth of renormalization.
	maxDecodeOverrun = 64
)

type (
	// Text2Bytes is the model-conditioned entropy coder: it compresses
	// vocabulary text into a dense byte buffer by range coding each token
	// against the full next-token distribution, and expands such a buffer
	// back into the exact original text.
	Text2Bytes struct {
		model lm.Model
		stop  lm.Token
		ids   []lm.Token // the whole vocabulary, ascending
	}

	step struct {
		lo, hi uint32
	}
)

func NewText2Bytes(m lm.Model) (*Text2Bytes, error) {
	stop, err := resolveToken(m, EndOfMessage)
	if err != nil {
		return nil, fmt.Errorf("resolve stop symbol: %w", err)
	}
	ids := make([]lm.Token, m.VocabSize())
	for i := range ids {
		ids[i] = lm.Token(i)
	}
	return &Text2Bytes{model: m, stop: stop, ids: ids}, nil
}

// resolveToken maps a literal to its single token id.
func resolveToken(m lm.Model, literal string) (lm.Token, error) {
	toks, err := m.Tokenize(literal)
	if err != nil {
		return 0, err
	}
	if len(toks) != 1 {
		return 0, fmt.Errorf("literal %q is %d tokens, want 1", literal, len(toks))
	}
	return toks[0], nil
}

// Compress entropy codes text conditioned on context. The end-of-message
// token is coded as the final symbol so the byte length itself carries no
// message boundary, and the coder state is flushed to whole bytes.
func (c *Text2Bytes) Compress(text, context string) ([]byte, error) {
	ctxTokens, err := c.model.Tokenize(context)
	if err != nil {
		return nil, fmt.Errorf("tokenize context: %w", err)
	}
	msgTokens, err := c.model.Tokenize(text)
	if err != nil {
		return nil, fmt.Errorf("tokenize message: %w", err)
	}

	enc := rangeEncoder{high: codeMax}
	work := append([]lm.Token(nil), ctxTokens...)
	for _, tok := range append(msgTokens, c.stop) {
		dist, err := c.model.Distribution(work)
		if err != nil {
			return nil, fmt.Errorf("model distribution: %w", err)
		}
		bk := newBuckets(c.ids, dist)
		i, ok := bk.indexOf(tok)
		if !ok {
			return nil, fmt.Errorf("token %d missing from full distribution", tok)
		}
		lo, hi := bk.bounds(i)
		enc.encode(lo, hi)
		work = append(work, tok)
	}
	return enc.finish(), nil
}

// Decompress inverts Compress: it replays the byte stream against the same
// distribution sequence, selecting at each step the symbol whose interval
// holds the code value, until the end-of-message symbol, then verifies the
// stream is the canonical encoding of what it decoded. Any disagreement is a
// decoding fault, never a wrong answer.
func (c *Text2Bytes) Decompress(data []byte, context string) (string, error) {
	ctxTokens, err := c.model.Tokenize(context)
	if err != nil {
		return "", fmt.Errorf("tokenize context: %w", err)
	}

	dec := newRangeDecoder(data)
	work := append([]lm.Token(nil), ctxTokens...)
	var out []lm.Token
	var steps []step
	for {
		if len(steps) > maxDecodeTokens {
			return "", &DecodingFaultError{Reason: "token bound exceeded"}
		}
		if dec.r.overrun() > maxDecodeOverrun {
			return "", &DecodingFaultError{Reason: "byte stream exhausted before end of message"}
		}

		dist, err := c.model.Distribution(work)
		if err != nil {
			return "", fmt.Errorf("model distribution: %w", err)
		}
		bk := newBuckets(c.ids, dist)
		i := bk.locate(dec.target())
		lo, hi := bk.bounds(i)
		dec.consume(lo, hi)
		steps = append(steps, step{lo: lo, hi: hi})

		tok := bk.ids[i]
		if tok == c.stop {
			break
		}
		out = append(out, tok)
		work = append(work, tok)
	}

	// Padding bits are defined as zero, so a genuine stream is byte for
	// byte the re-encoding of its own symbols. Anything else is garbage
	// that happened to stumble into an end-of-message symbol.
	enc := rangeEncoder{high: codeMax}
	for _, s := range steps {
		enc.encode(s.lo, s.hi)
	}
	if !bytes.Equal(enc.finish(), data) {
		return "", &DecodingFaultError{Reason: "stream is not a canonical encoding"}
	}

	return c.model.Detokenize(out), nil
}

type (
	rangeEncoder struct {
		low, high uint64
		pending   int
		w         bitWriter
	}

	rangeDecoder struct {
		low, high, code uint64
		r               bitReader
	}
)

func (e *rangeEncoder) encode(lo, hi uint32) {
	span := e.high - e.low + 1
	e.high = e.low + span*uint64(hi)/scaleTotal - 1
	e.low = e.low + span*uint64(lo)/scaleTotal
	for {
		switch {
		case e.high < codeHalf:
			e.emit(0)
		case e.low >= codeHalf:
			e.emit(1)
			e.low -= codeHalf
			e.high -= codeHalf
		case e.low >= codeQuarter && e.high < 3*codeQuarter:
			e.pending++
			e.low -= codeQuarter
			e.high -= codeQuarter
		default:
			return
		}
		e.low <<= 1
		e.high = e.high<<1 | 1
	}
}

func (e *rangeEncoder) emit(bit int) {
	e.w.writeBit(bit)
	for ; e.pending > 0; e.pending-- {
		e.w.writeBit(1 - bit)
	}
}

// finish flushes enough bits to disambiguate the final interval and pads the
// last byte with zeros.
func (e *rangeEncoder) finish() []byte {
	e.pending++
	if e.low < codeQuarter {
		e.emit(0)
	} else {
		e.emit(1)
	}
	return e.w.bytes()
}

func newRangeDecoder(data []byte) *rangeDecoder {
	d := &rangeDecoder{high: codeMax, r: bitReader{data: data}}
	for i := 0; i < codeBits; i++ {
		d.code = d.code<<1 | uint64(d.r.readBit())
	}
	return d
}

// target projects the code register into [0, scaleTotal) for bucket lookup.
func (d *rangeDecoder) target() uint32 {
	span := d.high - d.low + 1
	return uint32(((d.code-d.low+1)*scaleTotal - 1) / span)
}

func (d *rangeDecoder) consume(lo, hi uint32) {
	span := d.high - d.low + 1
	d.high = d.low + span*uint64(hi)/scaleTotal - 1
	d.low = d.low + span*uint64(lo)/scaleTotal
	for {
		switch {
		case d.high < codeHalf:
			// leading bit settled, shift it out below
		case d.low >= codeHalf:
			d.low -= codeHalf
			d.high -= codeHalf
			d.code -= codeHalf
		case d.low >= codeQuarter && d.high < 3*codeQuarter:
			d.low -= codeQuarter
			d.high -= codeQuarter
			d.code -= codeQuarter
		default:
			return
		}
		d.low <<= 1
		d.high = d.high<<1 | 1
		d.code = d.code<<1 | uint64(d.r.readBit())
	}
}
