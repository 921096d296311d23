package field

import "math"

// Gray 8-битное полутоновое изображение size×size.
// Порядок пикселей совпадает с Grid: Pix[y*Size+x].
type Gray struct {
	Size int
	Pix  []uint8
}

// NewGray создаёт чёрное изображение
func NewGray(size int) *Gray {
	return &Gray{Size: size, Pix: make([]uint8, size*size)}
}

// At возвращает интенсивность пикселя (x,y)
func (g *Gray) At(x, y int) uint8 {
	return g.Pix[y*g.Size+x]
}

// Equal сравнивает два изображения побайтно
func (g *Gray) Equal(o *Gray) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.Size != o.Size || len(g.Pix) != len(o.Pix) {
		return false
	}
	for i := range g.Pix {
		if g.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// ClampByte округляет значение и ограничивает его диапазоном [0,255].
// NaN отображается в 0.
func ClampByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r <= 0 {
		return 0
	}
	if r >= 255 {
		return 255
	}
	return uint8(r)
}

// MapGray переводит поле в полутоновое изображение функцией pixel,
// результат которой округляется и обрезается до [0,255].
func MapGray(src *Grid, pixel func(v float64) float64) *Gray {
	out := NewGray(src.Size)
	for i, v := range src.Data {
		out.Pix[i] = ClampByte(pixel(v))
	}
	return out
}
