package kernel

import "math"

// Linear линейная интерполяция между a и b, t в [0,1]
func Linear(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// Cosine косинусная интерполяция: t переотображается через (1-cos(tπ))/2
func Cosine(a, b, t float64) float64 {
	f := (1 - math.Cos(t*math.Pi)) * 0.5
	return a*(1-f) + b*f
}

// Cubic кубическая интерполяция по четырём опорным точкам.
// Результат проходит через v1 при t=0 и через v2 при t=1.
func Cubic(v0, v1, v2, v3, t float64) float64 {
	p := (v3 - v2) - (v0 - v1)
	q := (v0 - v1) - p
	r := v2 - v0
	s := v1

	return p*t*t*t + q*t*t + r*t + s
}

// CubicRow применяет Cubic к строке из четырёх значений
func CubicRow(v [4]float64, t float64) float64 {
	return Cubic(v[0], v[1], v[2], v[3], t)
}

// SmoothStep весовая функция 3t²-2t³ классического градиентного шума
func SmoothStep(t float64) float64 {
	return t * t * (3 - 2*t)
}

// Dot скалярное произведение градиента (gx,gy) на смещение (dx,dy)
func Dot(gx, gy, dx, dy float64) float64 {
	return gx*dx + gy*dy
}

// GradientBlend смешивает значения четырёх углов ячейки:
// s (x0,y0), t (x1,y0), u (x0,y1), v (x1,y1) с весами SmoothStep по дробным частям fx, fy.
func GradientBlend(s, t, u, v, fx, fy float64) float64 {
	sx := SmoothStep(fx)
	a := s + sx*(t-s)
	b := u + sx*(v-u)

	return a + SmoothStep(fy)*(b-a)
}
