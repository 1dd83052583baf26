package provider

import "io"

// readAll drains r, bounding the read so a misbehaving vendor error body
// can't exhaust memory.
func readAll(r io.Reader) (string, error) {
	const maxErrBody = 64 * 1024
	buf, err := io.ReadAll(io.LimitReader(r, maxErrBody))
	return string(buf), err
}
