package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSlotIntent() BookingIntent {
	slotID := int64(42)
	return BookingIntent{
		Version:           IntentVersion,
		TargetType:        IntentTargetSlot,
		SlotID:            &slotID,
		ParticipantsCount: 1,
		Price:             1500,
		Description:       "Training 2025-06-02 10:00-11:00",
	}
}

func validGroupIntent() BookingIntent {
	sessionID := int64(5)
	return BookingIntent{
		Version:           IntentVersion,
		TargetType:        IntentTargetGroup,
		GroupSessionID:    &sessionID,
		ParticipantsCount: 3,
		Price:             500,
		Description:       "Morning yoga",
	}
}

func TestBookingIntent_Validate(t *testing.T) {
	badSlotID := int64(0)

	tests := []struct {
		name    string
		mutate  func(i *BookingIntent)
		intent  BookingIntent
		wantErr bool
	}{
		{name: "valid slot intent", intent: validSlotIntent()},
		{name: "valid group intent", intent: validGroupIntent()},
		{
			name:    "unsupported version",
			intent:  validSlotIntent(),
			mutate:  func(i *BookingIntent) { i.Version = 2 },
			wantErr: true,
		},
		{
			name:    "unknown target type",
			intent:  validSlotIntent(),
			mutate:  func(i *BookingIntent) { i.TargetType = "equipment" },
			wantErr: true,
		},
		{
			name:    "slot target without slotId",
			intent:  validSlotIntent(),
			mutate:  func(i *BookingIntent) { i.SlotID = nil },
			wantErr: true,
		},
		{
			name:    "slot target with non-positive slotId",
			intent:  validSlotIntent(),
			mutate:  func(i *BookingIntent) { i.SlotID = &badSlotID },
			wantErr: true,
		},
		{
			name:    "slot target with several participants",
			intent:  validSlotIntent(),
			mutate:  func(i *BookingIntent) { i.ParticipantsCount = 2 },
			wantErr: true,
		},
		{
			name:    "group target without groupSessionId",
			intent:  validGroupIntent(),
			mutate:  func(i *BookingIntent) { i.GroupSessionID = nil },
			wantErr: true,
		},
		{
			name:    "group target with zero participants",
			intent:  validGroupIntent(),
			mutate:  func(i *BookingIntent) { i.ParticipantsCount = 0 },
			wantErr: true,
		},
		{
			name:    "negative price",
			intent:  validGroupIntent(),
			mutate:  func(i *BookingIntent) { i.Price = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := tt.intent
			if tt.mutate != nil {
				tt.mutate(&intent)
			}

			err := intent.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIntent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIntent_MarshalRoundTrip(t *testing.T) {
	intent := validGroupIntent()

	data, err := MarshalIntent(intent)
	require.NoError(t, err)

	got, err := UnmarshalIntent(data)
	require.NoError(t, err)
	assert.Equal(t, intent, got)
}

func TestUnmarshalIntent_BrokenJSON(t *testing.T) {
	_, err := UnmarshalIntent([]byte(`{"version":`))
	assert.ErrorIs(t, err, ErrInvalidIntent)
}

func TestUnmarshalIntent_DoesNotValidate(t *testing.T) {
	// Settlement distinguishes broken JSON from an incomplete payload:
	// unmarshal succeeds, a later Validate call rejects the intent
	got, err := UnmarshalIntent([]byte(`{"version":1,"targetType":"slot"}`))
	require.NoError(t, err)
	assert.Error(t, got.Validate())
}
