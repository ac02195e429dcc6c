package proxy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContent_UnmarshalString(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &msg))

	require.NotNil(t, msg.Content.Text)
	assert.Equal(t, "hello", *msg.Content.Text)
	assert.Empty(t, msg.Content.Parts)
}

func TestMessageContent_UnmarshalParts(t *testing.T) {
	raw := `{"role":"user","content":[{"type":"text","text":"edit"},{"type":"image_url","image_url":{"url":"http://img/1"}}]}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Nil(t, msg.Content.Text)
	require.Len(t, msg.Content.Parts, 2)
	assert.Equal(t, "text", msg.Content.Parts[0].Type)
	require.NotNil(t, msg.Content.Parts[1].ImageURL)
	assert.Equal(t, "http://img/1", msg.Content.Parts[1].ImageURL.URL)
}

func TestMessageContent_UnmarshalRejectsOtherShapes(t *testing.T) {
	var msg Message
	assert.Error(t, json.Unmarshal([]byte(`{"role":"user","content":42}`), &msg))
}
