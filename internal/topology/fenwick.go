package topology

// fenwick is a binary indexed tree over node weights. It answers prefix sums and
// "which node owns slot k" in O(log n), standing in for a materialised list in
// which node j is repeated weight[j] times.
type fenwick struct {
	tree  []int
	total int
	step  int // highest power of two <= len(tree)-1
}

func newFenwick(n int) *fenwick {
	step := 1
	for step*2 <= n {
		step *= 2
	}
	return &fenwick{tree: make([]int, n+1), step: step}
}

// add changes the weight of node i by delta
func (f *fenwick) add(i, delta int) {
	f.total += delta
	for x := i + 1; x < len(f.tree); x += x & -x {
		f.tree[x] += delta
	}
}

// prefix returns the summed weight of nodes [0, i]
func (f *fenwick) prefix(i int) int {
	sum := 0
	for x := i + 1; x > 0; x -= x & -x {
		sum += f.tree[x]
	}
	return sum
}

// find returns the node owning slot k, 0 <= k < total: the smallest i with
// prefix(i) > k.
func (f *fenwick) find(k int) int {
	pos := 0
	for step := f.step; step > 0; step >>= 1 {
		next := pos + step
		if next < len(f.tree) && f.tree[next] <= k {
			pos = next
			k -= f.tree[next]
		}
	}
	return pos
}
