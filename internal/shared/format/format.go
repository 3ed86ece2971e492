package format

import (
	"fmt"
	"strings"
)

// FloatRU возвращает строку вида "100.000.000,5": точка разделяет тысячи,
// запятая — дробную часть. decimals — максимум знаков после запятой
// (криптовалютные объёмы требуют до восьми); хвостовые нули срезаются,
// но хотя бы один знак после запятой остаётся всегда.
func FloatRU(v float64, decimals int) string {
	if decimals <= 0 || decimals > 8 {
		decimals = 8
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%.*f", decimals, v)
	intPart, frac, _ := strings.Cut(s, ".")

	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}

	// Целая часть с разделителями тысяч
	var out []byte
	cnt := 0
	for i := len(intPart) - 1; i >= 0; i-- {
		out = append(out, intPart[i])
		cnt++
		if cnt%3 == 0 && i != 0 {
			out = append(out, '.')
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return sign + string(out) + "," + frac
}
