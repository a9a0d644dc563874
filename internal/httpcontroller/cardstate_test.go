package httpcontroller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardStateTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    CardState
		event   CardEvent
		want    CardState
		wantErr bool
	}{
		{name: "closed opens details", from: StateClosed, event: EventOpenDetails, want: StateViewing},
		{name: "closed opens edit directly", from: StateClosed, event: EventOpenEdit, want: StateEditing},
		{name: "viewing switches to edit", from: StateViewing, event: EventOpenEdit, want: StateEditing},
		{name: "viewing closes", from: StateViewing, event: EventClose, want: StateClosed},
		{name: "editing returns to details", from: StateEditing, event: EventOpenDetails, want: StateViewing},
		{name: "editing closes", from: StateEditing, event: EventClose, want: StateClosed},
		{name: "closed rejects close", from: StateClosed, event: EventClose, wantErr: true},
		{name: "viewing rejects open-details", from: StateViewing, event: EventOpenDetails, wantErr: true},
		{name: "editing rejects open-edit", from: StateEditing, event: EventOpenEdit, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.from.Apply(tt.event)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.from, got, "a rejected transition must not change state")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCardStatesAreMutuallyExclusive(t *testing.T) {
	t.Parallel()

	// From any state, every valid event lands in exactly one state
	for from, events := range transitions {
		for event, to := range events {
			got, err := from.Apply(event)
			require.NoError(t, err)
			assert.Equal(t, to, got, "transition %s from %s", event, from)
		}
	}
}

func TestParseCardState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    CardState
		wantErr bool
	}{
		{value: "", want: StateClosed},
		{value: "closed", want: StateClosed},
		{value: "viewing", want: StateViewing},
		{value: "editing", want: StateEditing},
		{value: "both", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseCardState(tt.value)
		if tt.wantErr {
			assert.Error(t, err, "value %q", tt.value)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "value %q", tt.value)
	}
}
