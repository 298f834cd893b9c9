package tracking

// trackArena is the active-track table: a contiguous slot store plus an
// index from track id to slot. Slots are recycled through a free list;
// track ids never are. Iteration follows slot order, which keeps per-frame
// processing deterministic.
type trackArena struct {
	slots []*Track
	index map[int]int
	free  []int
}

func newTrackArena() *trackArena {
	return &trackArena{
		slots: make([]*Track, 0, 64),
		index: make(map[int]int),
	}
}

func (a *trackArena) len() int {
	return len(a.index)
}

func (a *trackArena) insert(track *Track) {
	var slot int
	if n := len(a.free); n > 0 {
		slot = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[slot] = track
	} else {
		slot = len(a.slots)
		a.slots = append(a.slots, track)
	}
	a.index[track.ID] = slot
}

func (a *trackArena) get(id int) *Track {
	slot, ok := a.index[id]
	if !ok {
		return nil
	}
	return a.slots[slot]
}

func (a *trackArena) remove(id int) {
	slot, ok := a.index[id]
	if !ok {
		return
	}
	a.slots[slot] = nil
	a.free = append(a.free, slot)
	delete(a.index, id)
}

// tracks returns the live tracks in slot order.
func (a *trackArena) tracks() []*Track {
	out := make([]*Track, 0, len(a.index))
	for _, track := range a.slots {
		if track != nil {
			out = append(out, track)
		}
	}
	return out
}
