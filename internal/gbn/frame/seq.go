package frame

// SeqAdd returns (seq + delta) mod modulus. The window and receiver
// packages use this instead of raw integer arithmetic everywhere a
// sequence number is advanced, so wraparound at modulus is never a special
// case at the call site.
func SeqAdd(seq, delta, modulus uint64) uint64 {
	return (seq + delta) % modulus
}

// SeqLE reports whether a precedes or equals b on a circular sequence
// space of size modulus, using half-space comparison: a is considered
// "at or before" b if advancing forward from a reaches b in fewer than
// modulus/2 steps. This is the fix the design notes call for in place of
// naive positional comparison, which breaks the instant the window spans
// a wraparound boundary.
//
// Both a and b must already be reduced mod modulus.
func SeqLE(a, b, modulus uint64) bool {
	diff := (b + modulus - a) % modulus
	return diff < modulus/2
}

// SeqLT reports whether a strictly precedes b, by the same half-space
// rule as SeqLE.
func SeqLT(a, b, modulus uint64) bool {
	return a != b && SeqLE(a, b, modulus)
}

// SeqDistance returns the number of forward steps from a to b on the
// circular sequence space (always in [0, modulus)).
func SeqDistance(a, b, modulus uint64) uint64 {
	return (b + modulus - a) % modulus
}
