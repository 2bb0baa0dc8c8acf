// utilitário pequeno para formatação rápida/consistente de valores numéricos
// em headers, sem puxar fmt para o hot path.

package admission

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatInt64(v int64) string { return strconv.FormatInt(v, 10) }

// ceilSeconds arredonda uma duração para cima em segundos inteiros
// (contrato do header Retry-After).
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
