// Package ustr is a small fixed-capacity path-name buffer: paths
// arriving over IPC are copied into a bounded buffer once, up front,
// so the rest of the system never has to re-validate length or
// NUL-termination.
package ustr

// MaxLen is the longest path SOS will accept over IPC, including the
// trailing NUL.
const MaxLen = 256

// Ustr is a bounded, NUL-terminated byte buffer for path names.
type Ustr struct {
	buf [MaxLen]byte
	len int
}

// New copies s into a Ustr, truncating at MaxLen-1 bytes and always
// NUL-terminating. Mirrors Ustr_t.Ustrunsafe but copies
// instead of aliasing the caller's slice, since SOS's IPC buffer is
// reused for the next message as soon as this call returns.
func New(s []byte) Ustr {
	var u Ustr
	n := copy(u.buf[:MaxLen-1], s)
	u.len = n
	u.buf[n] = 0
	return u
}

// FromString is a convenience wrapper over New for Go string literals,
// used by tests.
func FromString(s string) Ustr {
	return New([]byte(s))
}

// Bytes returns the path's bytes, excluding the NUL terminator.
func (u *Ustr) Bytes() []byte {
	return u.buf[:u.len]
}

// String renders the path for logging and error messages.
func (u *Ustr) String() string {
	return string(u.Bytes())
}

// Len reports the path length in bytes, excluding the NUL terminator.
func (u *Ustr) Len() int {
	return u.len
}

// Valid reports whether the path is non-empty and did not require
// truncation detection at a higher layer — dispatch rejects an overlong
// path with defs.EInvalidArgument before ever constructing a Ustr from
// it, so New itself never fails.
func (u *Ustr) Valid() bool {
	return u.len > 0
}
