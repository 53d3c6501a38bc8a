package offsetlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntry_IsPadding(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{name: "empty payload", data: nil, want: true},
		{name: "all zero", data: make([]byte, 64), want: true},
		{name: "json", data: []byte(`{"value":{}}`), want: false},
		{name: "trailing non-zero", data: []byte{0, 0, 0, 1}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry{Offset: 12, Data: tt.data}
			if got := e.IsPadding(); got != tt.want {
				t.Errorf("IsPadding() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_Copy(t *testing.T) {
	original := Entry{Offset: 40, Data: []byte("payload")}
	copied := original.Copy()

	assert.Equal(t, original, copied)

	copied.Data[0] = 'X'
	assert.Equal(t, "payload", string(original.Data), "copy must not share the payload")
	assert.Equal(t, 7, original.Size())
}
