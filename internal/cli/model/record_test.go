package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Newer(t *testing.T) {
	cases := []struct {
		name   string
		remote Record
		local  Record
		want   bool
	}{
		{"later updatedAt wins", Record{UpdatedAt: 101, ServerVersion: 1}, Record{UpdatedAt: 100, ServerVersion: 9}, true},
		{"older updatedAt loses despite version", Record{UpdatedAt: 90, ServerVersion: 5}, Record{UpdatedAt: 100, ServerVersion: 2}, false},
		{"tie broken by higher version", Record{UpdatedAt: 100, ServerVersion: 9}, Record{UpdatedAt: 100, ServerVersion: 2}, true},
		{"full tie keeps local", Record{UpdatedAt: 100, ServerVersion: 2}, Record{UpdatedAt: 100, ServerVersion: 2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.remote.Newer(tc.local))
		})
	}
}

func TestSyncStatus_NotSerialized(t *testing.T) {
	c := Card{Record: Record{ID: "c1", UpdatedAt: 5, SyncStatus: StatusPending}, Title: "t"}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "pending")
	assert.Contains(t, string(b), `"updatedAt":5`)

	var back Card
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, SyncStatus(""), back.SyncStatus)
	assert.Equal(t, "c1", back.ID)
}

func TestChanges_MaxServerVersionAndEmpty(t *testing.T) {
	var ch Changes
	assert.True(t, ch.Empty())
	assert.Equal(t, int64(0), ch.MaxServerVersion())

	ch.Cards = []Card{{Record: Record{ServerVersion: 5}}, {Record: Record{ServerVersion: 7}}}
	ch.Folders = []Folder{{Record: Record{ServerVersion: 3}}}
	assert.False(t, ch.Empty())
	assert.Equal(t, 3, ch.Len())
	assert.Equal(t, int64(7), ch.MaxServerVersion())
}
