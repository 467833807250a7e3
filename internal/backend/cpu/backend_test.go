package cpu

import (
	"testing"

	"github.com/loom-ml/loom/internal/tensor"
)

func rawFloat32(t *testing.T, shape tensor.Shape, values []float32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(tensor.AsSlice[float32](r), values)
	return r
}

func assertFloat32s(t *testing.T, want []float32, got *tensor.RawTensor, msg string) {
	t.Helper()
	data := tensor.AsSlice[float32](got)
	if len(data) != len(want) {
		t.Fatalf("%s: got %d elements, want %d", msg, len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("%s: element %d = %v, want %v", msg, i, data[i], want[i])
		}
	}
}

func assertShape(t *testing.T, want tensor.Shape, got *tensor.RawTensor, msg string) {
	t.Helper()
	if !got.Shape().Equal(want) {
		t.Errorf("%s: shape %v, want %v", msg, got.Shape(), want)
	}
}

func TestAdd(t *testing.T) {
	be := New()
	a := rawFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := rawFloat32(t, tensor.Shape{2, 2}, []float32{10, 20, 30, 40})
	assertFloat32s(t, []float32{11, 22, 33, 44}, be.Add(a, b), "add")
}

func TestAddBroadcast(t *testing.T) {
	be := New()
	a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := rawFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})
	out := be.Add(a, b)
	assertShape(t, tensor.Shape{2, 3}, out, "add broadcast")
	assertFloat32s(t, []float32{11, 22, 33, 14, 25, 36}, out, "add broadcast")
}

func TestSum(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	out := be.Sum(x)
	assertShape(t, tensor.Shape{}, out, "sum")
	assertFloat32s(t, []float32{21}, out, "sum")
}

func TestSumDim(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	t.Run("dim 0", func(t *testing.T) {
		out := be.SumDim(x, 0, false)
		assertShape(t, tensor.Shape{3}, out, "sum dim 0")
		assertFloat32s(t, []float32{5, 7, 9}, out, "sum dim 0")
	})

	t.Run("dim 1 keepdim", func(t *testing.T) {
		out := be.SumDim(x, 1, true)
		assertShape(t, tensor.Shape{2, 1}, out, "sum dim 1 keepdim")
		assertFloat32s(t, []float32{6, 15}, out, "sum dim 1 keepdim")
	})

	t.Run("negative dim", func(t *testing.T) {
		out := be.SumDim(x, -1, false)
		assertShape(t, tensor.Shape{2}, out, "sum dim -1")
		assertFloat32s(t, []float32{6, 15}, out, "sum dim -1")
	})
}

func TestPermute(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	axes := []int{1, 0}
	out := be.Permute(x, axes)
	assertShape(t, tensor.Shape{3, 2}, out, "permute")
	assertFloat32s(t, []float32{1, 4, 2, 5, 3, 6}, out, "permute")
	if axes[0] != 1 || axes[1] != 0 {
		t.Error("Permute mutated the caller's axes slice")
	}
}

func TestUnsqueezeSqueeze(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	u := be.Unsqueeze(x, 1)
	assertShape(t, tensor.Shape{2, 1, 3}, u, "unsqueeze")

	s := be.Squeeze(u, 1)
	assertShape(t, tensor.Shape{2, 3}, s, "squeeze")
	assertFloat32s(t, []float32{1, 2, 3, 4, 5, 6}, s, "squeeze round trip")

	un := be.Unsqueeze(x, -1)
	assertShape(t, tensor.Shape{2, 3, 1}, un, "unsqueeze -1")
}

func TestExpand(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{1, 3}, []float32{1, 2, 3})
	out := be.Expand(x, tensor.Shape{2, 3})
	assertShape(t, tensor.Shape{2, 3}, out, "expand")
	assertFloat32s(t, []float32{1, 2, 3, 1, 2, 3}, out, "expand")
}

func TestNarrow(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2, 4}, []float32{1, 2, 3, 4, 5, 6, 7, 8})
	out := be.Narrow(x, 1, 1, 2)
	assertShape(t, tensor.Shape{2, 2}, out, "narrow")
	assertFloat32s(t, []float32{2, 3, 6, 7}, out, "narrow")
}

func TestCat(t *testing.T) {
	be := New()
	a := rawFloat32(t, tensor.Shape{1, 2}, []float32{1, 2})
	b := rawFloat32(t, tensor.Shape{1, 2}, []float32{3, 4})
	out := be.Cat([]*tensor.RawTensor{a, b}, 0)
	assertShape(t, tensor.Shape{2, 2}, out, "cat")
	assertFloat32s(t, []float32{1, 2, 3, 4}, out, "cat")
}

func TestStack(t *testing.T) {
	be := New()
	a := rawFloat32(t, tensor.Shape{2}, []float32{1, 2})
	b := rawFloat32(t, tensor.Shape{2}, []float32{3, 4})
	out := be.Stack([]*tensor.RawTensor{a, b}, 0)
	assertShape(t, tensor.Shape{2, 2}, out, "stack")
	assertFloat32s(t, []float32{1, 2, 3, 4}, out, "stack")
}

func TestFlip(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	t.Run("rows", func(t *testing.T) {
		assertFloat32s(t, []float32{4, 5, 6, 1, 2, 3}, be.Flip(x, []int{0}), "flip rows")
	})

	t.Run("both", func(t *testing.T) {
		assertFloat32s(t, []float32{6, 5, 4, 3, 2, 1}, be.Flip(x, []int{0, 1}), "flip both")
	})
}

func TestRepeat(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2}, []float32{1, 2})

	t.Run("tile", func(t *testing.T) {
		out := be.Repeat(x, []int{3})
		assertShape(t, tensor.Shape{6}, out, "repeat tile")
		assertFloat32s(t, []float32{1, 2, 1, 2, 1, 2}, out, "repeat tile")
	})

	t.Run("new leading axis", func(t *testing.T) {
		out := be.Repeat(x, []int{2, 3})
		assertShape(t, tensor.Shape{2, 6}, out, "repeat leading")
		assertFloat32s(t, []float32{1, 2, 1, 2, 1, 2, 1, 2, 1, 2, 1, 2}, out, "repeat leading")
	})
}

func TestDiagEmbed(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2}, []float32{1, 2})

	t.Run("main diagonal", func(t *testing.T) {
		out := be.DiagEmbed(x, 0)
		assertShape(t, tensor.Shape{2, 2}, out, "diag embed")
		assertFloat32s(t, []float32{1, 0, 0, 2}, out, "diag embed")
	})

	t.Run("offset 1", func(t *testing.T) {
		out := be.DiagEmbed(x, 1)
		assertShape(t, tensor.Shape{3, 3}, out, "diag embed offset")
		assertFloat32s(t, []float32{0, 1, 0, 0, 0, 2, 0, 0, 0}, out, "diag embed offset")
	})
}

func TestDiagonal(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	t.Run("main diagonal", func(t *testing.T) {
		out := be.Diagonal(x, 0, 0, 1)
		assertShape(t, tensor.Shape{2}, out, "diagonal")
		assertFloat32s(t, []float32{1, 5}, out, "diagonal")
	})

	t.Run("offset 1", func(t *testing.T) {
		out := be.Diagonal(x, 1, 0, 1)
		assertShape(t, tensor.Shape{2}, out, "diagonal offset")
		assertFloat32s(t, []float32{2, 6}, out, "diagonal offset")
	})

	t.Run("batched dims", func(t *testing.T) {
		// [2, 2, 2] with dim1=1, dim2=2: the remaining axis comes first,
		// the diagonal is appended last.
		b := rawFloat32(t, tensor.Shape{2, 2, 2}, []float32{1, 2, 3, 4, 5, 6, 7, 8})
		out := be.Diagonal(b, 0, 1, 2)
		assertShape(t, tensor.Shape{2, 2}, out, "batched diagonal")
		assertFloat32s(t, []float32{1, 4, 5, 8}, out, "batched diagonal")
	})
}

func TestTrilTriu(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{3, 3}, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})

	t.Run("tril", func(t *testing.T) {
		assertFloat32s(t, []float32{1, 0, 0, 4, 5, 0, 7, 8, 9}, be.Tril(x, 0), "tril")
	})

	t.Run("triu", func(t *testing.T) {
		assertFloat32s(t, []float32{1, 2, 3, 0, 5, 6, 0, 0, 9}, be.Triu(x, 0), "triu")
	})

	t.Run("tril offset", func(t *testing.T) {
		assertFloat32s(t, []float32{1, 2, 0, 4, 5, 6, 7, 8, 9}, be.Tril(x, 1), "tril offset")
	})
}

func TestReshapeSharesStorage(t *testing.T) {
	be := New()
	x := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	v := be.Reshape(x, tensor.Shape{3, 2})
	tensor.AsSlice[float32](v)[0] = 42
	if got := tensor.AsSlice[float32](x)[0]; got != 42 {
		t.Errorf("reshape copied storage: got %v, want 42", got)
	}
}

func TestTensorWrapper(t *testing.T) {
	be := New()
	a, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, be)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	b, err := tensor.FromSlice([]float32{1, 1, 1, 1}, tensor.Shape{2, 2}, be)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	sum := a.Add(b)
	if got := sum.At(1, 1); got != 5 {
		t.Errorf("At(1,1) = %v, want 5", got)
	}

	total := a.Sum()
	if got := total.Item(); got != 10 {
		t.Errorf("Sum().Item() = %v, want 10", got)
	}

	tr := a.T()
	if got := tr.At(0, 1); got != 3 {
		t.Errorf("T().At(0,1) = %v, want 3", got)
	}
}
