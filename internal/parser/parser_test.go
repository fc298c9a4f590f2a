package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/pitwall/pkg/core"
)

func TestParseIntFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"zero", "0", 0, false},
		{"float with decimals", "32.00", 32, false},
		{"negative", "-1", -1, false},
		{"fractional rejects", "10.99", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDriverSelection(t *testing.T) {
	sel, err := ParseDriverSelection([]string{"2", `"Norris"`})
	require.NoError(t, err)
	assert.Equal(t, DriverSelection{Slot: 1, DriverID: "norris"}, sel)

	sel, err = ParseDriverSelection([]string{"1.0", "alonso"})
	require.NoError(t, err)
	assert.Equal(t, 0, sel.Slot)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"missing id", []string{"1"}, ErrArgCount},
		{"slot zero", []string{"0", "alonso"}, ErrInvalidArg},
		{"slot three", []string{"3", "alonso"}, ErrInvalidArg},
		{"slot text", []string{"first", "alonso"}, ErrInvalidArg},
		{"empty id", []string{"1", `""`}, ErrInvalidArg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDriverSelection(tt.args)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseTrack(t *testing.T) {
	name, err := ParseTrack([]string{` "Spa-Francorchamps" `})
	require.NoError(t, err)
	assert.Equal(t, "Spa-Francorchamps", name)

	_, err = ParseTrack(nil)
	assert.ErrorIs(t, err, ErrArgCount)
	_, err = ParseTrack([]string{""})
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestParseSlot(t *testing.T) {
	slot, err := ParseSlot([]string{"2"})
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	_, err = ParseSlot([]string{"1", "2"})
	assert.ErrorIs(t, err, ErrArgCount)
}

func TestParseStopInsert(t *testing.T) {
	ins, err := ParseStopInsert([]string{"1", "22", "HARD"})
	require.NoError(t, err)
	assert.Equal(t, StopInsert{Slot: 0, Lap: 22, Tire: core.TireHard}, ins)

	_, err = ParseStopInsert([]string{"1", "22.5", "hard"})
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestParseStopUpdate(t *testing.T) {
	upd, err := ParseStopUpdate([]string{"2", "1", "30", "soft"})
	require.NoError(t, err)
	assert.Equal(t, StopUpdate{Slot: 1, Index: 1, Lap: 30, Tire: core.TireSoft}, upd)

	_, err = ParseStopUpdate([]string{"2", "x", "30", "soft"})
	assert.ErrorIs(t, err, ErrInvalidArg)
	_, err = ParseStopUpdate([]string{"2", "1", "30"})
	assert.ErrorIs(t, err, ErrArgCount)
}

func TestParseStopRef(t *testing.T) {
	ref, err := ParseStopRef([]string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, StopRef{Slot: 0, Index: 2}, ref)

	_, err = ParseStopRef([]string{"1", "lap"})
	assert.ErrorIs(t, err, ErrInvalidArg)
}

func TestParseStopList(t *testing.T) {
	stops, err := ParseStopList(" 1:Soft, 18:medium ,36:hard,")
	require.NoError(t, err)
	assert.Equal(t, []core.PitStop{
		{Lap: 1, Tire: core.TireSoft},
		{Lap: 18, Tire: core.TireMedium},
		{Lap: 36, Tire: core.TireHard},
	}, stops)

	for _, in := range []string{"", "1", "1:", "x:soft", "1.5:soft"} {
		_, err := ParseStopList(in)
		assert.ErrorIs(t, err, ErrInvalidArg, in)
	}
}
