package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"agrolink/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTontineCreateAndGet(t *testing.T) {
	env := newTestEnv(t, "tontine_http")

	w := env.do(t, http.MethodPost, "/api/tontines", map[string]interface{}{
		"name":                "village savings",
		"region":              "north",
		"contribution_amount": 50,
	})
	mustStatus(t, w, http.StatusCreated)

	var created models.Tontine
	decodeJSON(t, w, &created)
	assert.Equal(t, uint(1), created.CreatorID)
	assert.Equal(t, "pending", created.Status)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/tontines/%d", created.ID), nil)
	mustStatus(t, w, http.StatusOK)

	w = env.do(t, http.MethodGet, "/api/tontines/9999", nil)
	mustStatus(t, w, http.StatusNotFound)
}

func TestTontineCreate_ValidationError(t *testing.T) {
	env := newTestEnv(t, "tontine_http_invalid")

	w := env.do(t, http.MethodPost, "/api/tontines", map[string]interface{}{"name": "no region"})
	mustStatus(t, w, http.StatusBadRequest)
}

func TestTontineList_Paginated(t *testing.T) {
	env := newTestEnv(t, "tontine_http_list")

	for i := 0; i < 3; i++ {
		tontine := &models.Tontine{Name: "g", Region: "north", Status: "active"}
		if err := env.db.Create(tontine).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	w := env.do(t, http.MethodGet, "/api/tontines?page=1&page_size=2", nil)
	mustStatus(t, w, http.StatusOK)

	var resp PaginatedResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.Pages)
	assert.Equal(t, 1, resp.Page)
}

func TestTontineJoinAndContribute(t *testing.T) {
	env := newTestEnv(t, "tontine_http_join")

	tontine := &models.Tontine{Name: "g", Status: "active", MemberCount: 1, MaxMembers: 5}
	if err := env.db.Create(tontine).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/tontines/%d/join", tontine.ID), nil)
	mustStatus(t, w, http.StatusOK)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/tontines/%d/contributions", tontine.ID),
		map[string]interface{}{"amount": 75})
	mustStatus(t, w, http.StatusCreated)

	var contribution models.TontineContribution
	decodeJSON(t, w, &contribution)
	assert.Equal(t, 75.0, contribution.Amount)
	assert.Equal(t, uint(1), contribution.UserID)

	// 非法金额
	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/tontines/%d/contributions", tontine.ID),
		map[string]interface{}{"amount": -5})
	mustStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPost, "/api/tontines/9999/join", nil)
	mustStatus(t, w, http.StatusNotFound)
}
