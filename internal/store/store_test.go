// internal/store/store_test.go
package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"plcview/internal/tag"
)

func sampleAt(sec int, v int64) tag.Sample {
	return tag.Sample{
		At:    time.Date(2025, 6, 1, 12, 0, sec, 0, time.UTC),
		Value: tag.IntValue(v),
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New([]string{"a"}, 0); err == nil {
		t.Fatalf("expected error for capacity 0")
	}
	if _, err := New([]string{"a", "a"}, 10); err == nil {
		t.Fatalf("expected error for duplicate signal")
	}
	if _, err := New([]string{""}, 10); err == nil {
		t.Fatalf("expected error for empty signal name")
	}
}

func TestAppendAndLatest(t *testing.T) {
	st, err := New([]string{"plc1.temp"}, 10)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	if _, err := st.Latest("plc1.temp"); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}

	if err := st.Append("plc1.temp", sampleAt(1, 10)); err != nil {
		t.Fatalf("Append err=%v", err)
	}
	if err := st.Append("plc1.temp", sampleAt(2, 20)); err != nil {
		t.Fatalf("Append err=%v", err)
	}

	smp, err := st.Latest("plc1.temp")
	if err != nil {
		t.Fatalf("Latest err=%v", err)
	}
	if smp.Value.Int != 20 {
		t.Fatalf("expected latest 20, got %d", smp.Value.Int)
	}
}

func TestHistoryOldestFirst(t *testing.T) {
	st, _ := New([]string{"s"}, 10)
	for i := 0; i < 5; i++ {
		st.Append("s", sampleAt(i, int64(i)))
	}

	hist, err := st.History("s", 0)
	if err != nil {
		t.Fatalf("History err=%v", err)
	}
	if len(hist) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(hist))
	}
	for i, smp := range hist {
		if smp.Value.Int != int64(i) {
			t.Fatalf("sample %d out of order: got %d", i, smp.Value.Int)
		}
	}
}

func TestEvictionKeepsNewest(t *testing.T) {
	st, _ := New([]string{"s"}, 3)
	for i := 0; i < 7; i++ {
		st.Append("s", sampleAt(i, int64(i)))
	}

	hist, _ := st.History("s", 0)
	if len(hist) != 3 {
		t.Fatalf("expected window of 3, got %d", len(hist))
	}
	for i, want := range []int64{4, 5, 6} {
		if hist[i].Value.Int != want {
			t.Fatalf("expected %d at index %d, got %d", want, i, hist[i].Value.Int)
		}
	}

	smp, _ := st.Latest("s")
	if smp.Value.Int != 6 {
		t.Fatalf("expected latest 6, got %d", smp.Value.Int)
	}
}

func TestHistoryMaxCount(t *testing.T) {
	st, _ := New([]string{"s"}, 10)
	for i := 0; i < 6; i++ {
		st.Append("s", sampleAt(i, int64(i)))
	}

	hist, _ := st.History("s", 2)
	if len(hist) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(hist))
	}
	// Most recent two, still oldest first.
	if hist[0].Value.Int != 4 || hist[1].Value.Int != 5 {
		t.Fatalf("expected [4 5], got [%d %d]", hist[0].Value.Int, hist[1].Value.Int)
	}

	hist, _ = st.History("s", 100)
	if len(hist) != 6 {
		t.Fatalf("max beyond window should return all, got %d", len(hist))
	}
}

func TestUnknownSignal(t *testing.T) {
	st, _ := New([]string{"s"}, 10)

	if err := st.Append("nope", sampleAt(0, 0)); !errors.Is(err, ErrUnknownSignal) {
		t.Fatalf("Append: expected ErrUnknownSignal, got %v", err)
	}
	if _, err := st.Latest("nope"); !errors.Is(err, ErrUnknownSignal) {
		t.Fatalf("Latest: expected ErrUnknownSignal, got %v", err)
	}
	if _, err := st.History("nope", 0); !errors.Is(err, ErrUnknownSignal) {
		t.Fatalf("History: expected ErrUnknownSignal, got %v", err)
	}
}

func TestSignalsSorted(t *testing.T) {
	st, _ := New([]string{"b.y", "a.z", "a.x"}, 10)
	got := st.Signals()
	want := []string{"a.x", "a.z", "b.y"}
	if len(got) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestInvalidSampleRetained(t *testing.T) {
	st, _ := New([]string{"s"}, 10)
	st.Append("s", tag.Sample{At: time.Now()}) // decode failure marker

	smp, err := st.Latest("s")
	if err != nil {
		t.Fatalf("Latest err=%v", err)
	}
	if smp.Valid() {
		t.Fatalf("expected invalid sample to be retained as-is")
	}
}

func TestConcurrentDisjointWriters(t *testing.T) {
	names := []string{"a.v", "b.v", "c.v", "d.v"}
	st, _ := New(names, 20)

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				st.Append(name, sampleAt(i%60, int64(i)))
			}
		}(name)
	}
	wg.Wait()

	for _, name := range names {
		hist, err := st.History(name, 0)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(hist) != 20 {
			t.Fatalf("%s: expected full window, got %d", name, len(hist))
		}
		smp, _ := st.Latest(name)
		if smp.Value.Int != 199 {
			t.Fatalf("%s: latest=%d", name, smp.Value.Int)
		}
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	st, _ := New([]string{"s"}, 50)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			st.Append("s", sampleAt(i%60, int64(i)))
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				st.Latest("s")
				hist, _ := st.History("s", 0)
				if len(hist) > 50 {
					t.Errorf("window overflow: %d", len(hist))
					return
				}
			}
		}()
	}

	wg.Wait()
}
