package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerWithoutBrokers(t *testing.T) {
	p := NewProducer(nil, "tasks")
	assert.True(t, IsMock(p))
	assert.NoError(t, p.SendMessage(context.Background(), "tasks", "id", entity.ConversionTask{ConversionID: "id"}))
	assert.NoError(t, p.Close())
}

func TestNewMessage(t *testing.T) {
	msg, err := newMessage("tasks", "abc", entity.ConversionTask{ConversionID: "abc", Theme: "space", Rotate: 90})
	require.NoError(t, err)

	assert.Equal(t, "tasks", msg.Topic)
	assert.Equal(t, []byte("abc"), msg.Key)

	var task entity.ConversionTask
	require.NoError(t, json.Unmarshal(msg.Value, &task))
	assert.Equal(t, "space", task.Theme)
	assert.Equal(t, 90, task.Rotate)
}

func TestNewMessageUnmarshalable(t *testing.T) {
	_, err := newMessage("tasks", "k", make(chan int))
	assert.Error(t, err)
}

func TestDecodeTask(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		want    entity.ConversionTask
	}{
		{
			name:    "valid",
			payload: `{"conversion_id":"c1","theme":"animals","rotate":180}`,
			want:    entity.ConversionTask{ConversionID: "c1", Theme: "animals", Rotate: 180},
		},
		{name: "missing id", payload: `{"theme":"animals"}`, wantErr: true},
		{name: "not json", payload: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeTask([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
