package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat_Conversions(t *testing.T) {
	f := Format{SampleRate: 8000, Channels: 2, BitsPerSample: 16}

	assert.Equal(t, 4, f.BlockAlign())
	assert.Equal(t, int64(32000), f.BytesPerSecond())
	assert.Equal(t, time.Second, f.Duration(32000))
	assert.Equal(t, uint32(1500), f.Millis(48000))
	assert.Equal(t, int64(3200), f.Bytes(100*time.Millisecond))
	assert.Equal(t, uint32(100), f.Millis(f.Bytes(100*time.Millisecond)))

	assert.Zero(t, f.Millis(0))
	assert.Zero(t, Format{}.Millis(100))
	assert.Zero(t, Format{}.Duration(100))
}

func TestFormat_Validate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr string
	}{
		{name: "default", format: DefaultFormat},
		{name: "zero rate", format: Format{Channels: 1, BitsPerSample: 16}, wantErr: "sample rate"},
		{name: "too many channels", format: Format{SampleRate: 1, Channels: 9, BitsPerSample: 16}, wantErr: "channels"},
		{name: "odd sample width", format: Format{SampleRate: 1, Channels: 1, BitsPerSample: 12}, wantErr: "bits per sample"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
