package planner

import "testing"

func TestRingAllocCommitRunFree(t *testing.T) {
	rg := New()

	b := rg.Alloc()
	if b == nil {
		t.Fatal("expected a free slot on empty ring")
	}
	b.Length = 10
	rg.Commit()

	run := rg.Run()
	if run == nil {
		t.Fatal("expected to be able to run the committed block")
	}
	if run.State != BufferRunning {
		t.Errorf("expected state Running, got %v", run.State)
	}
	if run.Length != 10 {
		t.Errorf("expected Length=10 to survive commit/run, got %v", run.Length)
	}

	rg.Free()
	if rg.freeCount() != RingSize {
		t.Errorf("expected all slots free after Free(), got %d", rg.freeCount())
	}
}

func TestRingHeadroomBlocksAllocWhenNearlyFull(t *testing.T) {
	rg := New()
	for i := 0; i < RingSize-BufferHeadroom; i++ {
		b := rg.Alloc()
		if b == nil {
			t.Fatalf("unexpected nil alloc at iteration %d", i)
		}
		rg.Commit()
	}
	if rg.Alloc() != nil {
		t.Error("expected Alloc to refuse once headroom is exhausted")
	}
}
