package field

import "math"

// Grid квадратное поле вещественных значений size×size.
// Индексация (x,y), x меняется быстрее: Data[y*Size+x].
type Grid struct {
	Size int
	Data []float64
}

// NewGrid создаёт поле, заполненное нулями
func NewGrid(size int) *Grid {
	return &Grid{
		Size: size,
		Data: make([]float64, size*size),
	}
}

// At возвращает значение ячейки (x,y)
func (g *Grid) At(x, y int) float64 {
	return g.Data[y*g.Size+x]
}

// Set записывает значение ячейки (x,y)
func (g *Grid) Set(x, y int, v float64) {
	g.Data[y*g.Size+x] = v
}

// Wrap приводит индекс к диапазону [0,Size) с заворачиванием по тору.
func (g *Grid) Wrap(i int) int {
	return Wrap(i, g.Size)
}

// Bounds возвращает минимум и максимум значений поля
func (g *Grid) Bounds() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Wrap приводит i к [0,n) для любого знака i.
func Wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Mask отмечает уже вычисленные ячейки поля.
type Mask struct {
	size   int
	filled []bool
	count  int
}

// NewMask создаёт пустую маску size×size
func NewMask(size int) *Mask {
	return &Mask{size: size, filled: make([]bool, size*size)}
}

// Filled сообщает, вычислена ли ячейка (x,y)
func (m *Mask) Filled(x, y int) bool {
	return m.filled[y*m.size+x]
}

// Mark помечает ячейку (x,y) как вычисленную
func (m *Mask) Mark(x, y int) {
	i := y*m.size + x
	if !m.filled[i] {
		m.filled[i] = true
		m.count++
	}
}

// Count возвращает количество вычисленных ячеек
func (m *Mask) Count() int {
	return m.count
}

// Complete возвращает true, когда заполнены все ячейки
func (m *Mask) Complete() bool {
	return m.count == len(m.filled)
}
