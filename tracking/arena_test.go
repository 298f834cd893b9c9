package tracking

import "testing"

func TestArenaInsertGetRemove(t *testing.T) {
	arena := newTrackArena()
	for id := 0; id < 5; id++ {
		arena.insert(newTrack(id, NewPoint(float64(id), 0), 0, false))
	}
	if arena.len() != 5 {
		t.Errorf("Wrong arena length: %d, expected: 5", arena.len())
	}
	if track := arena.get(3); track == nil || track.ID != 3 {
		t.Error("Lookup by id failed")
	}
	arena.remove(3)
	if arena.get(3) != nil {
		t.Error("Removed track still resolvable")
	}
	if arena.len() != 4 {
		t.Errorf("Wrong arena length after remove: %d, expected: 4", arena.len())
	}
	// Removing a missing id is a no-op
	arena.remove(3)
	arena.remove(100)
	if arena.len() != 4 {
		t.Errorf("Remove of missing id changed length: %d", arena.len())
	}
}

func TestArenaSlotReuse(t *testing.T) {
	arena := newTrackArena()
	for id := 0; id < 3; id++ {
		arena.insert(newTrack(id, NewPoint(0, 0), 0, false))
	}
	arena.remove(1)
	arena.insert(newTrack(7, NewPoint(0, 0), 0, false))

	// The freed slot is recycled, the backing store does not grow
	if len(arena.slots) != 3 {
		t.Errorf("Backing store grew despite free slot: %d slots", len(arena.slots))
	}
	if track := arena.get(7); track == nil || track.ID != 7 {
		t.Error("Track inserted into recycled slot not resolvable")
	}
}

func TestArenaTracksSlotOrder(t *testing.T) {
	arena := newTrackArena()
	for id := 0; id < 4; id++ {
		arena.insert(newTrack(id, NewPoint(0, 0), 0, false))
	}
	arena.remove(0)
	arena.remove(2)
	arena.insert(newTrack(9, NewPoint(0, 0), 0, false))

	tracks := arena.tracks()
	if len(tracks) != 3 {
		t.Errorf("Wrong number of live tracks: %d, expected: 3", len(tracks))
		return
	}
	// Track 9 took the most recently freed slot (slot 2)
	expected := []int{1, 9, 3}
	for i, track := range tracks {
		if track.ID != expected[i] {
			t.Errorf("Wrong slot order at %d: id %d, expected: %d", i, track.ID, expected[i])
		}
	}
}
