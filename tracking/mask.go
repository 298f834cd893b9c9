package tracking

// Mask is a binary segmentation raster: one byte per pixel, zero for
// background and nonzero for foreground. Pixels are stored row-major.
type Mask struct {
	Width  int
	Height int
	pix    []uint8
}

// NewMask allocates an all-background mask of the given dimensions.
// Non-positive dimensions yield an empty mask.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		pix:    make([]uint8, width*height),
	}
}

// MaskFromRows builds a mask from row slices. Rows shorter than the first
// row are padded with background; longer rows are truncated.
func MaskFromRows(rows [][]uint8) *Mask {
	if len(rows) == 0 {
		return NewMask(0, 0)
	}
	mask := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, v := range row {
			if x >= mask.Width {
				break
			}
			if v != 0 {
				mask.pix[y*mask.Width+x] = 1
			}
		}
	}
	return mask
}

// At reports whether the pixel at (x, y) is foreground.
// Out-of-bounds coordinates are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.pix[y*m.Width+x] != 0
}

// Set marks the pixel at (x, y) as foreground. Out-of-bounds coordinates
// are ignored.
func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.pix[y*m.Width+x] = 1
}
