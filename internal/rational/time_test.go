package rational

import "testing"

func TestAddThenSubIsIdentity(t *testing.T) {
	a := New(3, 8)
	b := New(1, 6)
	sum := a.Add(b)
	back := sum.Sub(b).Simplify()
	if !back.Equal(a) {
		t.Fatalf("expected (a+b)-b == a, got %+v vs %+v", back, a)
	}
}

func TestCompareAgreesWithFloat(t *testing.T) {
	cases := []struct{ a, b Time }{
		{New(1, 2), New(1, 3)},
		{New(5, 7), New(5, 7)},
		{New(2, 10), New(1, 4)},
		{New(0, 1), New(1, 1000)},
	}
	for _, c := range cases {
		got := c.a.Compare(c.b)
		want := 0
		af, bf := c.a.Float64(), c.b.Float64()
		switch {
		case af < bf:
			want = -1
		case af > bf:
			want = 1
		}
		if got != want {
			t.Fatalf("Compare(%+v, %+v) = %d, want %d (floats %v vs %v)", c.a, c.b, got, want, af, bf)
		}
	}
}

func TestSimplifyReducesByGCD(t *testing.T) {
	t1 := New(8, 16).Simplify()
	if t1.Length != 1 || t1.ClockRate != 2 {
		t.Fatalf("expected 1/2, got %d/%d", t1.Length, t1.ClockRate)
	}
}

func TestMulIntScalesLength(t *testing.T) {
	got := New(1, 4).MulInt(3)
	if !got.Equal(New(3, 4)) {
		t.Fatalf("expected 3/4, got %+v", got)
	}
}

func TestAddRateIsLCM(t *testing.T) {
	sum := New(1, 4).Add(New(1, 6))
	// 1/4 + 1/6 = 5/12
	if !sum.Equal(New(5, 12)) {
		t.Fatalf("expected 5/12, got %+v (%v)", sum, sum.Float64())
	}
}

func TestSubUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on negative Time")
		}
	}()
	New(1, 4).Sub(New(1, 2))
}

func TestZeroIsZero(t *testing.T) {
	if !Zero(1000).IsZero() {
		t.Fatalf("expected Zero to report IsZero")
	}
}
