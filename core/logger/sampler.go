package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler passes the first num out of every den events. Per-message
// debug lines get expensive once webhook traffic picks up; sampling keeps a
// representative slice of them without flooding the sink.
type ratioSampler struct {
	num   atomic.Int64
	den   atomic.Int64
	count atomic.Int64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set configures the ratio. Non-positive values disable sampling entirely so
// every event passes.
func (s *ratioSampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	} else if num > den {
		num = den
	}
	s.num.Store(int64(num))
	s.den.Store(int64(den))
	s.count.Store(0)
}

// Allow reports whether the current event falls inside the sampled slice of
// its window.
func (s *ratioSampler) Allow() bool {
	den := s.den.Load()
	if den <= 0 {
		return true
	}
	pos := (s.count.Add(1) - 1) % den
	return pos < s.num.Load()
}

// parseRatioSpec understands "num/den" and the shorthand "n" meaning one in
// every n. Empty or unparseable specs come back as 0/0, which disables
// sampling.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if num, den, ok := strings.Cut(spec, "/"); ok {
		n, errN := strconv.Atoi(strings.TrimSpace(num))
		d, errD := strconv.Atoi(strings.TrimSpace(den))
		if errN == nil && errD == nil {
			return n, d
		}
		return 0, 0
	}
	if v, err := strconv.Atoi(spec); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}
