package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// PutFloat32 writes v into buf at the given byte offset using the host byte order GPUs expect (little endian).
// Writes past the end of buf are ignored.
//
// Parameters:
//   - buf: destination byte slice
//   - offset: byte offset of the first byte to write
//   - v: the value to write
func PutFloat32(buf []byte, offset uint64, v float32) {
	PutUint32(buf, offset, math.Float32bits(v))
}

// PutUint32 writes v into buf at the given byte offset in little endian order.
// Writes past the end of buf are ignored.
func PutUint32(buf []byte, offset uint64, v uint32) {
	if offset+4 > uint64(len(buf)) {
		return
	}
	buf[offset] = byte(v)
	buf[offset+1] = byte(v >> 8)
	buf[offset+2] = byte(v >> 16)
	buf[offset+3] = byte(v >> 24)
}

// SnapToGrid snaps a world-space position to the nearest lower multiple of cell on both axes.
//
// Parameters:
//   - p: the world-space position
//   - cell: the grid cell size, values <= 0 leave p unchanged
//
// Returns:
//   - mgl32.Vec2: the snapped position
func SnapToGrid(p mgl32.Vec2, cell float32) mgl32.Vec2 {
	if cell <= 0 {
		return p
	}
	return mgl32.Vec2{
		float32(math.Floor(float64(p[0]/cell))) * cell,
		float32(math.Floor(float64(p[1]/cell))) * cell,
	}
}
