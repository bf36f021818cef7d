package service

// NextSlot returns the smallest positive integer not in used. Numbers freed
// by rejections are handed out again before the sequence grows.
func NextSlot(used []int) int {
	taken := make(map[int]struct{}, len(used))
	for _, n := range used {
		if n > 0 {
			taken[n] = struct{}{}
		}
	}
	// At most len(taken) numbers are taken, so this stops by len(taken)+1.
	for n := 1; ; n++ {
		if _, ok := taken[n]; !ok {
			return n
		}
	}
}
