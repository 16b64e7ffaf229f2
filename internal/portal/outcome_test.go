package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRefusal(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want Disposition
	}{
		{"czech already reserved", "Tento den již bylo uživatelem rezervováno.", DispositionAlreadyReserved},
		{"english already reserved", "This day is ALREADY RESERVED for your account", DispositionAlreadyReserved},
		{"czech capacity", "Kapacita garáže je naplněná", DispositionCapacityFull},
		{"czech capacity mixed case", "KAPACITA vyčerpána", DispositionCapacityFull},
		{"english full", "The garage is full for this date", DispositionCapacityFull},
		{"already reserved wins over full", "already reserved, garage otherwise full", DispositionAlreadyReserved},
		{"unknown wording", "Neznámá chyba", DispositionOther},
		{"empty", "", DispositionOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyRefusal(tc.msg))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "refused", Refused.String())
	assert.Equal(t, "session_expired", SessionExpired.String())
	assert.Equal(t, "network_error", NetworkError.String())
}
