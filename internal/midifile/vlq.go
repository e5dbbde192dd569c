package midifile

// maxVLQLen is the longest variable-length quantity a standard MIDI file may
// contain.
const maxVLQLen = 4

// ReadVLQ decodes the variable-length quantity at the start of b. It returns
// the value and the number of bytes it took. ok is false if b ends before the
// quantity does or the quantity is longer than four bytes.
func ReadVLQ(b []byte) (v uint32, n int, ok bool) {
	for n < len(b) && n < maxVLQLen {
		c := b[n]
		n++
		v = v<<7 | uint32(c&0x7f)
		if c&0x80 == 0 {
			return v, n, true
		}
	}
	return v, n, false
}

// AppendVLQ appends v as a variable-length quantity. Only the low 28 bits
// of v are used.
func AppendVLQ(b []byte, v uint32) []byte {
	v &= 0x0fffffff
	var tmp [maxVLQLen]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7f)
	for v >>= 7; v != 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
	}
	return append(b, tmp[i:]...)
}
