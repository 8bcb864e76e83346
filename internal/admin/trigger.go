// Package admin detects the hidden keystroke sequence that opens the admin
// view.
//
// This is an easter-egg gate, not authentication: anyone who types the
// passphrase on the welcome or authorization screen gets the admin view.
package admin

// Passphrase is the sequence that opens the admin view.
const Passphrase = "1229"

// Trigger keeps the last len(Passphrase) keystrokes.
type Trigger struct {
	pass []rune
	buf  []rune
}

// NewTrigger returns a Trigger for Passphrase.
func NewTrigger() *Trigger {
	return NewTriggerFor(Passphrase)
}

// NewTriggerFor returns a Trigger for an arbitrary passphrase.
func NewTriggerFor(pass string) *Trigger {
	p := []rune(pass)
	return &Trigger{pass: p, buf: make([]rune, 0, len(p))}
}

// Observe records a keystroke and reports whether the buffer now equals the
// passphrase. A match clears the buffer.
func (t *Trigger) Observe(r rune) bool {
	if len(t.pass) == 0 {
		return false
	}
	if len(t.buf) == len(t.pass) {
		copy(t.buf, t.buf[1:])
		t.buf = t.buf[:len(t.buf)-1]
	}
	t.buf = append(t.buf, r)
	if string(t.buf) != string(t.pass) {
		return false
	}
	t.Reset()
	return true
}

// Reset clears the buffer.
func (t *Trigger) Reset() {
	t.buf = t.buf[:0]
}
