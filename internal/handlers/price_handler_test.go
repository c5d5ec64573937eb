package handlers

import (
	"net/http"
	"testing"

	"agrolink/internal/models"
	"agrolink/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestPriceSubmitAndList(t *testing.T) {
	env := newTestEnv(t, "price_http")

	w := env.do(t, http.MethodPost, "/api/prices", map[string]interface{}{
		"crop": "maize", "market": "central", "region": "north", "value": 120,
	})
	mustStatus(t, w, http.StatusCreated)

	var price models.MarketPrice
	decodeJSON(t, w, &price)
	assert.Equal(t, uint(1), price.SubmittedBy)
	assert.Equal(t, "kg", price.Unit)
	assert.False(t, price.IsVerified)

	var prices []models.MarketPrice
	w = env.do(t, http.MethodGet, "/api/prices?crop=maize", nil)
	mustStatus(t, w, http.StatusOK)
	decodeJSON(t, w, &prices)
	assert.Len(t, prices, 1)

	w = env.do(t, http.MethodGet, "/api/prices?crop=rice", nil)
	mustStatus(t, w, http.StatusOK)
	decodeJSON(t, w, &prices)
	assert.Empty(t, prices)
}

func TestPriceSubmit_ValidationError(t *testing.T) {
	env := newTestEnv(t, "price_http_invalid")

	w := env.do(t, http.MethodPost, "/api/prices", map[string]interface{}{
		"crop": "maize", "market": "central", "region": "north", "value": 0,
	})
	mustStatus(t, w, http.StatusBadRequest)
}

func TestPriceBoard(t *testing.T) {
	env := newTestEnv(t, "price_http_board")

	prices := []models.MarketPrice{
		{Crop: "maize", Market: "central", Region: "north", Value: 100, IsVerified: true},
		{Crop: "maize", Market: "east", Region: "north", Value: 130, IsVerified: true},
		{Crop: "rice", Market: "central", Region: "north", Value: 200, IsVerified: false},
	}
	for i := range prices {
		if err := env.db.Create(&prices[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	w := env.do(t, http.MethodGet, "/api/prices/board?region=north", nil)
	mustStatus(t, w, http.StatusOK)

	var board []services.BoardEntry
	decodeJSON(t, w, &board)
	if len(board) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(board))
	}
	assert.Equal(t, "maize", board[0].Crop)
	assert.Equal(t, 130.0, board[0].Value)
}
