package lines

// binaryPeek is how many leading bytes LooksBinary inspects.
const binaryPeek = 8

// LooksBinary reports whether the first few bytes of buf contain a zero byte
// or a byte outside 7-bit ASCII. It is a prefix heuristic, not an encoding
// validator.
func LooksBinary(buf []byte) (bool, error) {
	if err := checkBuffer(buf); err != nil {
		return false, err
	}
	for _, b := range buf[:min(len(buf), binaryPeek)] {
		if b == 0 || b&0x80 != 0 {
			return true, nil
		}
	}
	return false, nil
}
