package services

import (
	"context"
	"testing"
	"time"

	"agrolink/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTontineCreate_AutoApproveSmallAmount(t *testing.T) {
	engine, db := newTestEngine(t, "tontine_autoapprove")

	mustRule(t, db, "tontine_approval", "auto-approve-small",
		map[string]interface{}{
			"contribution_amount": map[string]interface{}{"operator": "less_than", "value": 100},
		},
		[]map[string]interface{}{{"type": "approve_entity", "reason": "small contribution"}}, 10, true)
	mustInitialize(t, engine)

	svc := NewTontineService(db, quietLogger(), engine)
	tontine, execs, err := svc.Create(context.Background(), 1, &TontineRequest{
		Name:               "village savings",
		Region:             "north",
		ContributionAmount: 50,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assert.Equal(t, "active", tontine.Status)
	assert.Len(t, execs, 1)
	assert.True(t, execs[0].Success)
	assert.Equal(t, "monthly", tontine.Frequency)
	assert.Equal(t, 12, tontine.MaxMembers)
	assert.Equal(t, 1, tontine.MemberCount)
}

func TestTontineCreate_NoRuleStaysPending(t *testing.T) {
	engine, db := newTestEngine(t, "tontine_pending")
	mustInitialize(t, engine)

	svc := NewTontineService(db, quietLogger(), engine)
	tontine, execs, err := svc.Create(context.Background(), 1, &TontineRequest{
		Name:               "big group",
		Region:             "south",
		ContributionAmount: 5000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assert.Equal(t, "pending", tontine.Status)
	assert.Empty(t, execs)
}

func TestTontineCreate_FlagLargeNotifiesAdmin(t *testing.T) {
	engine, db := newTestEngine(t, "tontine_flag")

	mustRule(t, db, "tontine_approval", "flag-large",
		map[string]interface{}{
			"contribution_amount": map[string]interface{}{"operator": "greater_than", "value": 1000},
		},
		[]map[string]interface{}{
			{"type": "send_notification", "admin_id": float64(1), "title": "Large tontine", "priority": "high"},
			{"type": "create_workflow", "workflow_type": "review"},
		}, 5, true)
	mustInitialize(t, engine)

	svc := NewTontineService(db, quietLogger(), engine)
	tontine, execs, err := svc.Create(context.Background(), 2, &TontineRequest{
		Name:               "traders pool",
		Region:             "east",
		ContributionAmount: 2500,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// 通知与工作流不改实体状态
	assert.Equal(t, "pending", tontine.Status)
	assert.Len(t, execs, 1)

	var notification models.AdminNotification
	if err := db.First(&notification).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}
	assert.Equal(t, "Large tontine", notification.Title)

	var workflow models.AdminWorkflow
	if err := db.First(&workflow).Error; err != nil {
		t.Fatalf("load workflow: %v", err)
	}
	assert.Equal(t, "review", workflow.WorkflowType)
	assert.Equal(t, tontine.ID, workflow.EntityID)
}

func TestTontineGet(t *testing.T) {
	db := newTestDB(t, "tontine_get")
	svc := NewTontineService(db, quietLogger(), nil)

	tontine := &models.Tontine{Name: "g", Status: "active"}
	if err := db.Create(tontine).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := svc.Get(context.Background(), tontine.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assert.Equal(t, "g", got.Name)

	_, err = svc.Get(context.Background(), 9999)
	assert.ErrorContains(t, err, "tontine not found")
}

func TestTontineList_RegionAndPagination(t *testing.T) {
	db := newTestDB(t, "tontine_list")
	svc := NewTontineService(db, quietLogger(), nil)

	for i := 0; i < 5; i++ {
		region := "north"
		if i%2 == 1 {
			region = "south"
		}
		tontine := &models.Tontine{Name: "g", Region: region, Status: "active"}
		if err := db.Create(tontine).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	all, total, err := svc.List(context.Background(), "", 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	assert.Equal(t, int64(5), total)
	assert.Len(t, all, 5)

	north, total, err := svc.List(context.Background(), "north", 1, 2)
	if err != nil {
		t.Fatalf("list north: %v", err)
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, north, 2)
}

func TestTontineJoin(t *testing.T) {
	db := newTestDB(t, "tontine_join")
	svc := NewTontineService(db, quietLogger(), nil)
	ctx := context.Background()

	active := &models.Tontine{Name: "open", Status: "active", MemberCount: 1, MaxMembers: 2}
	pending := &models.Tontine{Name: "waiting", Status: "pending", MemberCount: 1, MaxMembers: 10}
	for _, m := range []*models.Tontine{active, pending} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if err := svc.Join(ctx, active.ID, 2); err != nil {
		t.Fatalf("join: %v", err)
	}
	var got models.Tontine
	db.First(&got, active.ID)
	assert.Equal(t, 2, got.MemberCount)

	// 满员
	err := svc.Join(ctx, active.ID, 3)
	assert.ErrorContains(t, err, "tontine is full")

	err = svc.Join(ctx, pending.ID, 2)
	assert.ErrorContains(t, err, "tontine is not active")

	err = svc.Join(ctx, 9999, 2)
	assert.ErrorContains(t, err, "tontine not found")
}

func TestTontineContribute(t *testing.T) {
	db := newTestDB(t, "tontine_contribute")
	svc := NewTontineService(db, quietLogger(), nil)
	ctx := context.Background()

	tontine := &models.Tontine{Name: "g", Status: "active"}
	if err := db.Create(tontine).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	contribution, err := svc.Contribute(ctx, tontine.ID, 4, 150)
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	assert.Equal(t, time.Now().Format("2006-01"), contribution.Period)

	var got models.Tontine
	db.First(&got, tontine.ID)
	assert.Equal(t, 150.0, got.TotalContributions)

	_, err = svc.Contribute(ctx, tontine.ID, 4, 0)
	assert.ErrorContains(t, err, "amount must be positive")

	_, err = svc.Contribute(ctx, 9999, 4, 10)
	assert.ErrorContains(t, err, "tontine not found")
}
