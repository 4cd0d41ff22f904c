package dashboard

// tailBuffer keeps the most recent max lines in a fixed ring.
type tailBuffer struct {
	ring    []string
	next    int
	full    bool
	dropped int
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = 1
	}
	return &tailBuffer{ring: make([]string, max)}
}

func (t *tailBuffer) add(line string) {
	if t.full {
		t.dropped++
	}
	t.ring[t.next] = line
	t.next++
	if t.next == len(t.ring) {
		t.next = 0
		t.full = true
	}
}

// lines returns the retained lines oldest first.
func (t *tailBuffer) lines() []string {
	if !t.full {
		return append([]string(nil), t.ring[:t.next]...)
	}
	out := make([]string, 0, len(t.ring))
	out = append(out, t.ring[t.next:]...)
	return append(out, t.ring[:t.next]...)
}
