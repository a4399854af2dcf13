package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientStatus(t *testing.T) {
	status, err := ParseClientStatus(" Active ")
	require.NoError(t, err)
	assert.Equal(t, ClientStatusActive, status)

	status, err = ParseClientStatus("inactive")
	require.NoError(t, err)
	assert.Equal(t, ClientStatusInactive, status)

	_, err = ParseClientStatus("archived")
	assert.Error(t, err)
}

func TestClient_IsActive(t *testing.T) {
	assert.True(t, Client{Status: ClientStatusActive}.IsActive())
	assert.False(t, Client{Status: ClientStatusInactive}.IsActive())
}

func TestAllocation_DecodeJoinedRelations(t *testing.T) {
	body := `{
		"id": "al-1",
		"clientId": "c-1",
		"assetId": "a-1",
		"amount": 100.5,
		"createdAt": "2025-03-01T10:00:00Z",
		"client": {"id": "c-1", "name": "Ana", "email": "ana@example.com", "status": "active"},
		"asset": null
	}`

	var alloc Allocation
	require.NoError(t, json.Unmarshal([]byte(body), &alloc))

	client, ok := alloc.Client.Get()
	require.True(t, ok)
	assert.Equal(t, "Ana", client.Name)
	assert.False(t, alloc.Asset.IsSome(), "null join must decode to None")
	assert.True(t, decimal.RequireFromString("100.5").Equal(alloc.Amount))
}

func TestAllocation_DecodeMissingRelations(t *testing.T) {
	var alloc Allocation
	require.NoError(t, json.Unmarshal([]byte(`{"id":"al-1","clientId":"c-1","assetId":"a-1","amount":1}`), &alloc))

	assert.False(t, alloc.Client.IsSome())
	assert.False(t, alloc.Asset.IsSome())
}

func TestAllocation_EncodeOmitsAbsentRelations(t *testing.T) {
	alloc := Allocation{ID: "al-1", ClientID: "c-1", AssetID: "a-1", Amount: decimal.NewFromInt(5)}

	data, err := json.Marshal(alloc)
	require.NoError(t, err)

	assert.NotContains(t, string(data), `"client"`)
	assert.NotContains(t, string(data), `"asset"`)
	assert.Contains(t, string(data), `"amount":5`)
}
