package alarm

// EncodeCommand frames an operator command for the controller link.
// A command that already ends with the terminator is returned unchanged,
// so encoding is idempotent.
func EncodeCommand(raw string) []byte {
	if n := len(raw); n > 0 && raw[n-1] == Terminator {
		return []byte(raw)
	}

	framed := make([]byte, 0, len(raw)+1)
	framed = append(framed, raw...)

	return append(framed, Terminator)
}
