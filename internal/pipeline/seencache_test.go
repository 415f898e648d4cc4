package pipeline

import (
	"fmt"
	"sync"
	"testing"
)

func TestSeenCache_AddContains(t *testing.T) {
	t.Parallel()

	c := newSeenCache(3)
	if c.Contains("a") {
		t.Error("empty cache should not contain anything")
	}
	c.Add("a")
	if !c.Contains("a") {
		t.Error("added ID should be present")
	}
	c.Add("a")
	if c.Len() != 1 {
		t.Errorf("Len = %d after duplicate add, want 1", c.Len())
	}
}

func TestSeenCache_EvictsOldest(t *testing.T) {
	t.Parallel()

	c := newSeenCache(3)
	c.Add("a")
	c.Add("b")
	c.Add("c")
	c.Add("d")

	if c.Contains("a") {
		t.Error("oldest entry should have been evicted")
	}
	for _, id := range []string{"b", "c", "d"} {
		if !c.Contains(id) {
			t.Errorf("entry %q should survive", id)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestSeenCache_DefaultCapacity(t *testing.T) {
	t.Parallel()

	c := newSeenCache(0)
	for i := 0; i < 60; i++ {
		c.Add(fmt.Sprintf("id-%d", i))
	}
	if c.Len() != 50 {
		t.Errorf("Len = %d, want default capacity 50", c.Len())
	}
	if c.Contains("id-0") {
		t.Error("oldest entries should be evicted at default capacity")
	}
	if !c.Contains("id-59") {
		t.Error("newest entry should be present")
	}
}

func TestSeenCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := newSeenCache(100)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Add(fmt.Sprintf("id-%d-%d", i, j))
				c.Contains(fmt.Sprintf("id-%d-%d", i, j))
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 100 {
		t.Errorf("Len = %d, want capacity 100", c.Len())
	}
}
