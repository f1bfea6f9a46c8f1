package models

// Device is a paired remote device as reported by the companion application.
type Device struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Share     bool   `json:"share" yaml:"share"`
	Telephony bool   `json:"telephony" yaml:"telephony"`
}

// Capabilities returns how many actions the device accepts (0, 1, or 2).
func (d Device) Capabilities() int {
	n := 0
	if d.Share {
		n++
	}
	if d.Telephony {
		n++
	}
	return n
}
