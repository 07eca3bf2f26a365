package codec

type (
	// bitWriter accumulates single bits MSB-first into a byte buffer.
	bitWriter struct {
		buf  []byte
		cur  byte
		fill int // bits in cur
	}

	// bitReader yields single bits MSB-first from a byte buffer. Reads past
	// the end return 0 and are counted, so callers can bound overrun.
	bitReader struct {
		data []byte
		pos  int // bits consumed
	}
)

func (w *bitWriter) writeBit(b int) {
	w.cur <<= 1
	if b != 0 {
		w.cur |= 1
	}
	w.fill++
	if w.fill == 8 {
		w.buf = append(w.buf, w.cur)
		w.cur = 0
		w.fill = 0
	}
}

// written is the number of bits committed so far.
func (w *bitWriter) written() int {
	return len(w.buf)*8 + w.fill
}

// bytes flushes the partial byte, zero padded, and returns the buffer.
func (w *bitWriter) bytes() []byte {
	if w.fill == 0 {
		return w.buf
	}
	return append(w.buf, w.cur<<(8-w.fill))
}

func (r *bitReader) readBit() int {
	i := r.pos
	r.pos++
	if i >= len(r.data)*8 {
		return 0
	}
	return int(r.data[i/8]>>(7-i%8)) & 1
}

// overrun reports how many bits have been consumed beyond the buffer.
func (r *bitReader) overrun() int {
	over := r.pos - len(r.data)*8
	if over < 0 {
		return 0
	}
	return over
}

// bitAt reads bit i (MSB-first) of buf. i must be within the buffer.
func bitAt(buf []byte, i int) int {
	return int(buf[i/8]>>(7-i%8)) & 1
}
