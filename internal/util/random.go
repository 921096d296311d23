package util

import "math/rand/v2"

// streamSalt разводит два слова состояния PCG для одного сида.
const streamSalt = 0x9e3779b97f4a7c15

// NewRand создаёт локальный детерминированный генератор для одного рендера.
// Один и тот же сид всегда даёт одну и ту же последовательность.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^streamSalt))
}

// RandomSeed выбирает сид для запросов, где он не задан явно.
// Выбранный сид возвращается клиенту, чтобы результат можно было повторить.
func RandomSeed() uint64 {
	return rand.Uint64()
}
