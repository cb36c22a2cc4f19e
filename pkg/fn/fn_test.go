package fn

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestResultBasics(t *testing.T) {
	ok := Ok(42)
	if !ok.IsOk() || ok.IsErr() {
		t.Error("Ok result flags wrong")
	}
	if v, err := ok.Unwrap(); v != 42 || err != nil {
		t.Errorf("Unwrap = %v, %v", v, err)
	}

	bad := Err[int](errors.New("boom"))
	if bad.IsOk() {
		t.Error("Err result flags wrong")
	}
	if bad.UnwrapOr(7) != 7 {
		t.Error("UnwrapOr fallback not used")
	}

	if r := FromPair(3, nil); r.UnwrapOr(0) != 3 {
		t.Error("FromPair ok case")
	}
	if r := FromPair(3, errors.New("x")); r.IsOk() {
		t.Error("FromPair error case")
	}
}

func TestCollect(t *testing.T) {
	all := Collect([]Result[int]{Ok(1), Ok(2)})
	if vals, _ := all.Unwrap(); len(vals) != 2 || vals[1] != 2 {
		t.Errorf("Collect = %v", vals)
	}
	mixed := Collect([]Result[int]{Ok(1), Errf[int]("bad item")})
	if mixed.IsOk() {
		t.Error("Collect should propagate the first error")
	}
}

func TestThenShortCircuits(t *testing.T) {
	first := MapStage(func(s string) string { return s + "-a" })
	var secondRan bool
	second := Stage[string, string](func(_ context.Context, s string) Result[string] {
		secondRan = true
		return Ok(s + "-b")
	})

	r := Then(first, second)(context.Background(), "x")
	if v, _ := r.Unwrap(); v != "x-a-b" {
		t.Errorf("Then = %v", v)
	}

	secondRan = false
	failing := Stage[string, string](func(context.Context, string) Result[string] {
		return Errf[string]("stage failed")
	})
	r = Then(failing, second)(context.Background(), "x")
	if r.IsOk() || secondRan {
		t.Error("second stage ran after failure")
	}
}

func TestPipeline(t *testing.T) {
	double := MapStage(func(n int) int { return n * 2 })
	inc := MapStage(func(n int) int { return n + 1 })
	r := Pipeline(double, inc, double)(context.Background(), 3)
	if v, _ := r.Unwrap(); v != 14 {
		t.Errorf("Pipeline = %v, want 14", v)
	}
}

func TestTapStage(t *testing.T) {
	var seen int
	tap := TapStage(func(_ context.Context, n int) { seen = n })
	r := tap(context.Background(), 9)
	if v, _ := r.Unwrap(); v != 9 || seen != 9 {
		t.Errorf("TapStage passthrough = %v, seen = %v", v, seen)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[string] {
		attempts++
		if attempts < 3 {
			return Errf[string]("transient")
		}
		return Ok("done")
	})
	if v, _ := r.Unwrap(); v != "done" || attempts != 3 {
		t.Errorf("Retry = %v after %d attempts", v, attempts)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		return Errf[int]("always fails")
	})
	if r.IsOk() {
		t.Error("expected exhausted retry to fail")
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		return Errf[int]("fail then wait")
	})
	_, err := r.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSliceHelpers(t *testing.T) {
	nums := []int{1, 2, 3, 4, 5}

	strs := Map(nums, strconv.Itoa)
	if strings.Join(strs, "") != "12345" {
		t.Errorf("Map = %v", strs)
	}

	even := Filter(nums, func(n int) bool { return n%2 == 0 })
	if len(even) != 2 {
		t.Errorf("Filter = %v", even)
	}

	fm := FilterMap(nums, func(n int) (int, bool) { return n * 10, n > 3 })
	if len(fm) != 2 || fm[0] != 40 {
		t.Errorf("FilterMap = %v", fm)
	}

	chunks := Chunk(nums, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 {
		t.Errorf("Chunk = %v", chunks)
	}
	if Chunk(nums, 0) != nil {
		t.Error("Chunk with n<=0 should be nil")
	}

	uniq := UniqueBy([]string{"A", "a", "b"}, strings.ToLower)
	if len(uniq) != 2 || uniq[0] != "A" {
		t.Errorf("UniqueBy = %v", uniq)
	}
}

func TestParMapPreservesOrder(t *testing.T) {
	nums := make([]int, 100)
	for i := range nums {
		nums[i] = i
	}
	out := ParMap(nums, 8, func(n int) int { return n * n })
	for i, v := range out {
		if v != i*i {
			t.Fatalf("out[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestParMapResultCollect(t *testing.T) {
	results := ParMapResult([]int{1, 2, 3}, 2, func(n int) Result[int] {
		if n == 2 {
			return Errf[int]("bad: %d", n)
		}
		return Ok(n)
	})
	if Collect(results).IsOk() {
		t.Error("Collect should surface the failed item")
	}
}
