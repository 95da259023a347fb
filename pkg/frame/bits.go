package frame

// BitStream is an unpacked bit sequence, one bit per element (0 or 1).
// Demodulators produce these and the frame decoder consumes them, so a
// stream does not have to be byte-aligned or a multiple of 8 bits long.
type BitStream []byte

// AppendBit appends a single bit. Any non-zero value is stored as 1.
func (b *BitStream) AppendBit(bit byte) {
	if bit != 0 {
		bit = 1
	}
	*b = append(*b, bit)
}

// AppendByte appends the 8 bits of v, MSB first.
func (b *BitStream) AppendByte(v byte) {
	for i := 7; i >= 0; i-- {
		*b = append(*b, (v>>uint(i))&1)
	}
}

// AppendUint16 appends the 16 bits of v, MSB first (big-endian bit order).
func (b *BitStream) AppendUint16(v uint16) {
	b.AppendByte(byte(v >> 8))
	b.AppendByte(byte(v))
}

// AppendUint32 appends the 32 bits of v, MSB first.
func (b *BitStream) AppendUint32(v uint32) {
	b.AppendUint16(uint16(v >> 16))
	b.AppendUint16(uint16(v))
}

// ByteAt reads 8 bits starting at pos, MSB first. The second return value
// is false if fewer than 8 bits remain.
func (b BitStream) ByteAt(pos int) (byte, bool) {
	if pos < 0 || pos+8 > len(b) {
		return 0, false
	}
	var v byte
	for i := 0; i < 8; i++ {
		v = v<<1 | (b[pos+i] & 1)
	}
	return v, true
}

// Uint16At reads 16 bits starting at pos, MSB first.
func (b BitStream) Uint16At(pos int) (uint16, bool) {
	hi, ok := b.ByteAt(pos)
	if !ok {
		return 0, false
	}
	lo, ok := b.ByteAt(pos + 8)
	if !ok {
		return 0, false
	}
	return uint16(hi)<<8 | uint16(lo), true
}

// BitsFromBytes unpacks data into a BitStream, MSB first per byte.
func BitsFromBytes(data []byte) BitStream {
	bits := make(BitStream, 0, len(data)*8)
	for _, v := range data {
		bits.AppendByte(v)
	}
	return bits
}

// Bytes packs the stream into bytes, MSB first. Trailing bits that do not
// fill a whole byte are dropped.
func (b BitStream) Bytes() []byte {
	out := make([]byte, 0, len(b)/8)
	for pos := 0; pos+8 <= len(b); pos += 8 {
		v, _ := b.ByteAt(pos)
		out = append(out, v)
	}
	return out
}
