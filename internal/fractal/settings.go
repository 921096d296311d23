package fractal

import (
	"fmt"
	"strings"

	"github.com/annel0/fractal-terrain/internal/field"
)

// Mode способ интерполяции решётки
type Mode int

const (
	ModeLinear Mode = iota
	ModeCosine
	ModeCubic
	ModeGradient // классический градиентный шум Перлина
)

var modeNames = map[Mode]string{
	ModeLinear:   "linear",
	ModeCosine:   "cosine",
	ModeCubic:    "cubic",
	ModeGradient: "standard",
}

// String возвращает имя режима
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid сообщает, известен ли режим
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode разбирает имя режима. "gradient" и "perlin" синонимы "standard".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return ModeLinear, nil
	case "cosine":
		return ModeCosine, nil
	case "cubic":
		return ModeCubic, nil
	case "standard", "gradient", "perlin":
		return ModeGradient, nil
	}
	return 0, field.InvalidSettings("interpolation", fmt.Sprintf("unknown mode %q", s))
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, field.InvalidSettings("interpolation", m.String())
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// maxBlends ограничивает 2^blends разрядностью int
const maxBlends = 62

// Settings параметры фрактального шума.
//
// Blends задаёт число октав: начальный масштаб 2^Blends.
// MaxBright множитель яркости, итоговая яркость умножается на 100/MaxBright.
// FreqReduc (0..5) отсекает высокочастотные октавы.
// PreSmooth сглаживает скалярную решётку перед интерполяцией (не влияет на ModeGradient),
// PostSmooth сглаживает итоговое поле.
type Settings struct {
	Blends     int  `json:"blends" yaml:"blends"`
	Mode       Mode `json:"interpolation" yaml:"interpolation"`
	MaxBright  int  `json:"max_bright" yaml:"max_bright"`
	FreqReduc  int  `json:"freq_reduc" yaml:"freq_reduc"`
	PreSmooth  bool `json:"pre_smooth" yaml:"pre_smooth"`
	PostSmooth bool `json:"post_smooth" yaml:"post_smooth"`
}

// Validate проверяет параметры до начала вычислений
func (s Settings) Validate() error {
	if s.Blends < 0 {
		return field.InvalidSettings("blends", fmt.Sprintf("must not be negative, got %d", s.Blends))
	}
	if s.Blends > maxBlends {
		return field.NumericDegenerate("blends", fmt.Sprintf("2^%d overflows the octave counter", s.Blends))
	}
	if !s.Mode.Valid() {
		return field.InvalidSettings("interpolation", fmt.Sprintf("unknown mode %d", int(s.Mode)))
	}
	if s.MaxBright <= 0 {
		return field.InvalidSettings("max_bright", fmt.Sprintf("must be positive, got %d", s.MaxBright))
	}
	if s.FreqReduc < 0 || s.FreqReduc > 5 {
		return field.InvalidSettings("freq_reduc", fmt.Sprintf("must be in 0..5, got %d", s.FreqReduc))
	}
	return nil
}

// Cutoff доля начального масштаба, ниже которой октавы отбрасываются
func Cutoff(freqReduc int) float64 {
	switch freqReduc {
	case 0:
		return 0
	case 1:
		return 1.0 / 32
	case 2:
		return 1.0 / 16
	case 3:
		return 1.0 / 8
	case 4:
		return 1.0 / 4
	default:
		return 1.0 / 2
	}
}

// Octave один член фрактальной суммы: координаты делятся на Scale,
// значение делится на Divisor.
type Octave struct {
	Scale   int
	Divisor float64
}

// Octaves перечисляет октавы суммы: масштаб начинается с 2^Blends и делится
// пополам, пока остаётся больше порога отсечения.
func Octaves(s Settings) []Octave {
	scale := 1 << s.Blends
	stop := int(Cutoff(s.FreqReduc) * float64(scale))

	var out []Octave
	divisor := 2.0
	for scale > stop {
		out = append(out, Octave{Scale: scale, Divisor: divisor})
		scale /= 2
		divisor *= 2
	}
	return out
}
