// Package tensor provides the core tensor types and operations for the Loom framework.
package tensor

// DType is a constraint for supported tensor data types.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~bool
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Bool
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// inferDataType infers the runtime DataType from a generic type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case bool:
		return Bool
	default:
		panic("unsupported type")
	}
}

// MemoryFormat describes the requested physical layout of a tensor.
// Only Contiguous is implemented by the CPU backend; the enum exists so
// operators taking an optional format argument can validate it.
type MemoryFormat int

// Supported memory formats.
const (
	Contiguous MemoryFormat = iota
	ChannelsLast
)

// String returns a human-readable name for the memory format.
func (mf MemoryFormat) String() string {
	switch mf {
	case Contiguous:
		return "contiguous"
	case ChannelsLast:
		return "channels_last"
	default:
		return "unknown"
	}
}
