package topology

import "testing"

func TestFenwickPrefixAndFind(t *testing.T) {
	weights := []int{2, 0, 3, 1, 0, 4}
	f := newFenwick(len(weights))
	for i, w := range weights {
		f.add(i, w)
	}

	if f.total != 10 {
		t.Fatalf("expected total 10, got %d", f.total)
	}
	if got := f.prefix(2); got != 5 {
		t.Fatalf("expected prefix(2) = 5, got %d", got)
	}

	// slot -> owner, matching the expanded list [0 0 2 2 2 3 5 5 5 5]
	expected := []int{0, 0, 2, 2, 2, 3, 5, 5, 5, 5}
	for slot, want := range expected {
		if got := f.find(slot); got != want {
			t.Errorf("find(%d) = %d, expected %d", slot, got, want)
		}
	}
}

func TestFenwickRemoveAndRestore(t *testing.T) {
	f := newFenwick(3)
	f.add(0, 1)
	f.add(1, 1)
	f.add(2, 1)

	f.add(1, -1)
	if f.find(1) != 2 {
		t.Fatalf("expected slot 1 to move to node 2 after removal")
	}
	f.add(1, 1)
	if f.find(1) != 1 {
		t.Fatalf("expected slot 1 to return to node 1 after restore")
	}
}

func TestFenwickSingleNode(t *testing.T) {
	f := newFenwick(1)
	f.add(0, 3)
	for k := 0; k < 3; k++ {
		if f.find(k) != 0 {
			t.Fatalf("expected node 0 for slot %d", k)
		}
	}
}
