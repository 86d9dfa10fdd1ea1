package store

// Value is the raw result of a read: either a stored string or the absence
// of one. The zero Value is Absent.
type Value struct {
	raw     string
	present bool
}

// Absent is the Value returned for keys that do not exist.
var Absent = Value{}

// Present wraps a stored string.
func Present(raw string) Value {
	return Value{raw: raw, present: true}
}

// Raw returns the stored string and whether one was present.
func (v Value) Raw() (string, bool) {
	return v.raw, v.present
}

// IsAbsent reports whether no value was stored.
func (v Value) IsAbsent() bool {
	return !v.present
}

func (v Value) String() string {
	if !v.present {
		return "<absent>"
	}
	return v.raw
}
