package vkvideo

import "fmt"

// Handle is an opaque non-dispatchable object handle as seen by the application.
type Handle uint64

// NullHandle is the VK_NULL_HANDLE equivalent.
const NullHandle Handle = 0

func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uint64(h))
}

// Format is a VkFormat value. The checker only compares formats, it never interprets them.
type Format uint32

// Offset2D is a signed two-dimensional offset.
type Offset2D struct {
	X int32
	Y int32
}

// Extent2D is an unsigned two-dimensional extent.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Within reports whether e is not larger than o in either dimension.
func (e Extent2D) Within(o Extent2D) bool {
	return e.Width <= o.Width && e.Height <= o.Height
}

// AtLeast reports whether e is not smaller than o in either dimension.
func (e Extent2D) AtLeast(o Extent2D) bool {
	return e.Width >= o.Width && e.Height >= o.Height
}

// IsZero reports whether either dimension is zero.
func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// DivRoundUp divides each dimension by the dimensions of d, rounding up.
// A zero divisor dimension yields zero for that dimension.
func (e Extent2D) DivRoundUp(d Extent2D) Extent2D {
	var r Extent2D
	if d.Width != 0 {
		r.Width = (e.Width + d.Width - 1) / d.Width
	}
	if d.Height != 0 {
		r.Height = (e.Height + d.Height - 1) / d.Height
	}
	return r
}

func (e Extent2D) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// PictureResource is a video picture resource: an image view subregion used as a coded picture.
// Two picture resources denote the same picture iff all fields are equal.
type PictureResource struct {
	ImageView      Handle
	CodedOffset    Offset2D
	CodedExtent    Extent2D
	BaseArrayLayer uint32
}

func (r PictureResource) String() string {
	return fmt.Sprintf("view=%v layer=%d offset=(%d,%d) extent=%v",
		r.ImageView, r.BaseArrayLayer, r.CodedOffset.X, r.CodedOffset.Y, r.CodedExtent)
}
