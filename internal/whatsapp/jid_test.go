package whatsapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    JID
		group   bool
		wantErr bool
	}{
		{in: "972500000000@s.whatsapp.net", want: JID{User: "972500000000", Server: ServerUser}},
		{in: "972500000000:12@s.whatsapp.net", want: JID{User: "972500000000", Device: "12", Server: ServerUser}},
		{in: "972500000000.0:1@s.whatsapp.net", want: JID{User: "972500000000", Device: "1", Server: ServerUser}},
		{in: "120363025246125486@g.us", want: JID{User: "120363025246125486", Server: ServerGroup}, group: true},
		{in: "+972500000000", want: JID{User: "972500000000", Server: ServerUser}},
		{in: "1234@lid", want: JID{User: "1234", Server: ServerLID}},
		{in: "", wantErr: true},
		{in: "@g.us", wantErr: true},
		{in: "abc@", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseJID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.group, got.IsGroup())
		})
	}
}

func TestNormalizeJID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "972500000000@s.whatsapp.net", NormalizeJID("972500000000:7@s.whatsapp.net"))
	assert.Equal(t, "120363@g.us", NormalizeJID("120363@g.us"))
	assert.Equal(t, "", NormalizeJID(""))
	assert.Equal(t, "@972500000000", JID{User: "972500000000", Server: ServerUser}.Mention())
}

func TestWebhookSource(t *testing.T) {
	t.Parallel()

	t.Run("group message", func(t *testing.T) {
		p := WebhookPayload{From: "972500000001:3@s.whatsapp.net in 120363@g.us"}
		sender, group, err := p.Source()
		require.NoError(t, err)
		assert.Equal(t, "972500000001@s.whatsapp.net", sender.String())
		require.NotNil(t, group)
		assert.Equal(t, "120363@g.us", group.String())
	})

	t.Run("direct message", func(t *testing.T) {
		p := WebhookPayload{From: "972500000001@s.whatsapp.net"}
		sender, group, err := p.Source()
		require.NoError(t, err)
		assert.Equal(t, "972500000001", sender.User)
		assert.Nil(t, group)
	})

	t.Run("invalid", func(t *testing.T) {
		_, _, err := (&WebhookPayload{From: "x in "}).Source()
		assert.Error(t, err)
	})
}

func TestWebhookMediaAndTime(t *testing.T) {
	t.Parallel()
	p := WebhookPayload{
		Timestamp: "2025-03-20T10:00:00+02:00",
		Video:     &WebhookMedia{MediaPath: "statics/media/v.mp4", Caption: "look"},
	}
	assert.Equal(t, "statics/media/v.mp4", p.MediaPath())
	assert.Equal(t, "look", p.Caption())

	fallback := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 8, p.Time(fallback).UTC().Hour())

	var zero WebhookPayload
	assert.True(t, zero.Time(fallback).Equal(fallback))
	assert.True(t, (&WebhookPayload{Timestamp: "yesterday"}).Time(fallback).Equal(fallback))
	assert.Empty(t, zero.MediaPath())
}
