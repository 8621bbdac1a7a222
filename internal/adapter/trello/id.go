package trello

import (
	"strconv"
	"time"
)

// CreatedAt extrai o instante de criação dos 8 primeiros dígitos hex do id.
// Os ids do Trello seguem o formato ObjectId do MongoDB, que começa com o
// timestamp Unix em segundos. Outro backend de quadro deve fornecer a data real.
func CreatedAt(id string) (time.Time, bool) {
	if len(id) < 8 {
		return time.Time{}, false
	}
	secs, err := strconv.ParseUint(id[:8], 16, 32)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(int64(secs), 0).UTC(), true
}
