package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkgate/urlshortener/internal/events"
	"github.com/linkgate/urlshortener/internal/models"
)

func TestNew_WithoutBrokersIsNoop(t *testing.T) {
	p := events.New(nil, "link-clicks", nil)

	_, ok := p.(events.NoopPublisher)
	require.True(t, ok)
	assert.NoError(t, p.PublishClick(context.Background(), models.ClickEvent{}))
	assert.NoError(t, p.Close())
}

func TestNew_WithBrokersIsKafka(t *testing.T) {
	p := events.New([]string{"localhost:9092"}, "link-clicks", nil)

	_, ok := p.(*events.KafkaPublisher)
	assert.True(t, ok)
}

func TestEncodeClick(t *testing.T) {
	at := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	ev := models.ClickEvent{
		ClickID:   uuid.New(),
		LinkID:    uuid.New(),
		ShortCode: "promo",
		ClickedAt: at,
		Country:   "FR",
		Device:    "Mobile",
	}

	msg, err := events.EncodeClick(ev)
	require.NoError(t, err)

	assert.Equal(t, "promo", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "promo", decoded["short_code"])
	assert.Equal(t, ev.LinkID.String(), decoded["link_id"])
	assert.NotContains(t, decoded, "referer")
}
