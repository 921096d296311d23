package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/klauspost/compress/zstd"
)

// Формат записи: uint32 размер стороны (big endian) + пиксели построчно,
// весь блок сжат zstd.
const headerLen = 4

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("zstd decoder: %v", err))
	}
}

// Encode упаковывает изображение для хранения во внешнем кеше
func Encode(img *field.Gray) []byte {
	raw := make([]byte, headerLen+len(img.Pix))
	binary.BigEndian.PutUint32(raw, uint32(img.Size))
	copy(raw[headerLen:], img.Pix)
	return encoder.EncodeAll(raw, nil)
}

// Decode восстанавливает изображение, упакованное Encode
func Decode(data []byte) (*field.Gray, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(raw) < headerLen {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	size := int(binary.BigEndian.Uint32(raw))
	if size <= 0 || len(raw)-headerLen != size*size {
		return nil, fmt.Errorf("%w: size %d does not match %d pixels", ErrCorrupt, size, len(raw)-headerLen)
	}
	img := field.NewGray(size)
	copy(img.Pix, raw[headerLen:])
	return img, nil
}
