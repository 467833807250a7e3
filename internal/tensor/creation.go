package tensor

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err) // shape validated by callers creating literal shapes
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, oneValue[T](), b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Arange creates a 1-D tensor [0, 1, ..., n-1].
// Not defined for bool element types.
func Arange[T DType, B Backend](n int, b B) *Tensor[T, B] {
	t := Zeros[T, B](Shape{n}, b)
	data := t.Data()
	var cur T
	one := oneValue[T]()
	for i := range data {
		data[i] = cur
		cur = addValues(cur, one)
	}
	return t
}

func oneValue[T DType]() T {
	var dummy T
	var one any
	switch any(dummy).(type) {
	case float32:
		one = float32(1)
	case float64:
		one = float64(1)
	case int32:
		one = int32(1)
	case int64:
		one = int64(1)
	case bool:
		one = true
	}
	return one.(T)
}

func addValues[T DType](a, b T) T {
	switch x := any(a).(type) {
	case float32:
		return any(x + any(b).(float32)).(T)
	case float64:
		return any(x + any(b).(float64)).(T)
	case int32:
		return any(x + any(b).(int32)).(T)
	case int64:
		return any(x + any(b).(int64)).(T)
	case bool:
		panic("arange: bool tensors cannot be enumerated")
	default:
		panic("unsupported type")
	}
}
