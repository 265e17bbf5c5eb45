package call

// recentIDs remembers the last n finished call ids.
type recentIDs struct {
	ids  []int64
	next int
	set  map[int64]struct{}
}

func newRecentIDs(n int) *recentIDs {
	if n < 1 {
		n = 1
	}

	return &recentIDs{
		ids: make([]int64, n),
		set: make(map[int64]struct{}, n),
	}
}

func (r *recentIDs) add(id int64) {
	if id <= 0 || r.has(id) {
		return
	}

	if old := r.ids[r.next]; old != 0 {
		delete(r.set, old)
	}

	r.ids[r.next] = id
	r.set[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ids)
}

func (r *recentIDs) has(id int64) bool {
	_, ok := r.set[id]
	return ok
}

// remove forgets id, used when an optimistic finish is reverted.
func (r *recentIDs) remove(id int64) {
	if !r.has(id) {
		return
	}

	delete(r.set, id)

	for i, v := range r.ids {
		if v == id {
			r.ids[i] = 0
		}
	}
}
