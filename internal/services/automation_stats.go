package services

import (
	"context"
	"sync"
	"time"

	"agrolink/internal/models"
)

// AutomationStats 引擎状态快照
type AutomationStats struct {
	ActiveRules     int      `json:"active_rules"`
	RuleTypes       []string `json:"rule_types"`
	ExecutionsToday int64    `json:"executions_today"`
	SuccessRate     float64  `json:"success_rate"`
}

// SystemOverview 管理后台仪表板聚合
type SystemOverview struct {
	TotalUsers         int64   `json:"total_users"`
	ActiveUsers        int64   `json:"active_users"`
	NewUsersToday      int64   `json:"new_users_today"`
	TotalTontines      int64   `json:"total_tontines"`
	ActiveTontines     int64   `json:"active_tontines"`
	TotalContributions float64 `json:"total_contributions"`
	PendingPosts       int64   `json:"pending_posts"`
	ExecutionsToday    int64   `json:"executions_today"`
}

// GetAutomationStats returns a read-only snapshot of the engine state.
func (e *AutomationEngine) GetAutomationStats(ctx context.Context) (*AutomationStats, error) {
	e.mu.RLock()
	ruleCount := 0
	ruleTypes := make([]string, 0, len(e.rules))
	for ruleType, group := range e.rules {
		ruleTypes = append(ruleTypes, ruleType)
		ruleCount += len(group)
	}
	e.mu.RUnlock()

	today := startOfDay(time.Now())
	total, err := e.store.AutomationExecutionCount(ctx, today)
	if err != nil {
		return nil, err
	}
	succeeded, err := e.store.SuccessfulAutomationCount(ctx, today)
	if err != nil {
		return nil, err
	}
	rate := 0.0
	if total > 0 {
		rate = float64(succeeded) / float64(total)
	}
	return &AutomationStats{
		ActiveRules:     ruleCount,
		RuleTypes:       ruleTypes,
		ExecutionsToday: total,
		SuccessRate:     rate,
	}, nil
}

// GenerateSystemMetrics writes the daily aggregate counts as SystemMetric
// rows. Metrics generation is best-effort background work: every storage
// error is logged and swallowed. Returns the number of rows written.
func (e *AutomationEngine) GenerateSystemMetrics(ctx context.Context) int {
	today := startOfDay(time.Now())
	written := 0

	writeMetric := func(metricType, name string, value float64, unit string) {
		m := &models.SystemMetric{
			MetricType:  metricType,
			MetricName:  name,
			Value:       value,
			Unit:        unit,
			Period:      "daily",
			PeriodStart: today,
			PeriodEnd:   today.Add(24 * time.Hour),
			CreatedAt:   time.Now(),
		}
		if err := e.store.CreateSystemMetric(ctx, m); err != nil {
			e.logger.Warnf("automation: write metric %s failed: %v", name, err)
			return
		}
		written++
	}
	countMetric := func(name string, read func(context.Context) (int64, error)) {
		n, err := read(ctx)
		if err != nil {
			e.logger.Warnf("automation: read metric %s failed: %v", name, err)
			return
		}
		writeMetric("platform", name, float64(n), "count")
	}

	countMetric("total_users", e.store.UserCount)
	countMetric("active_users", e.store.ActiveUserCount)
	countMetric("new_users_today", func(ctx context.Context) (int64, error) {
		return e.store.NewUserCount(ctx, today)
	})
	countMetric("total_tontines", e.store.TontineCount)
	countMetric("active_tontines", e.store.ActiveTontineCount)

	if total, err := e.store.TotalContributions(ctx); err != nil {
		e.logger.Warnf("automation: read total contributions failed: %v", err)
	} else {
		writeMetric("platform", "total_contributions", total, "currency")
	}

	execs, err := e.store.AutomationExecutionCount(ctx, today)
	if err != nil {
		e.logger.Warnf("automation: read execution count failed: %v", err)
		return written
	}
	writeMetric("automation", "executions_today", float64(execs), "count")

	succeeded, err := e.store.SuccessfulAutomationCount(ctx, today)
	if err != nil {
		e.logger.Warnf("automation: read success count failed: %v", err)
		return written
	}
	rate := 0.0
	if execs > 0 {
		rate = float64(succeeded) / float64(execs)
	}
	writeMetric("automation", "success_rate", rate, "ratio")

	return written
}

// GetSystemOverview fans the dashboard reads out in parallel. Pending posts
// are counted in memory from a bulk fetch; result sets are small enough that
// this stays cheap. Any read failure is logged and returned so the dashboard
// never renders partial state silently.
func (e *AutomationEngine) GetSystemOverview(ctx context.Context) (*SystemOverview, error) {
	today := startOfDay(time.Now())
	overview := &SystemOverview{}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	read := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	read(func() (err error) {
		overview.TotalUsers, err = e.store.UserCount(ctx)
		return
	})
	read(func() (err error) {
		overview.ActiveUsers, err = e.store.ActiveUserCount(ctx)
		return
	})
	read(func() (err error) {
		overview.NewUsersToday, err = e.store.NewUserCount(ctx, today)
		return
	})
	read(func() (err error) {
		overview.TotalTontines, err = e.store.TontineCount(ctx)
		return
	})
	read(func() (err error) {
		overview.ActiveTontines, err = e.store.ActiveTontineCount(ctx)
		return
	})
	read(func() (err error) {
		overview.TotalContributions, err = e.store.TotalContributions(ctx)
		return
	})
	read(func() (err error) {
		overview.ExecutionsToday, err = e.store.AutomationExecutionCount(ctx, today)
		return
	})
	read(func() error {
		posts, err := e.store.CommunityPosts(ctx, "", 500)
		if err != nil {
			return err
		}
		var pending int64
		for _, post := range posts {
			if post.Status == "pending" {
				pending++
			}
		}
		overview.PendingPosts = pending
		return nil
	})

	wg.Wait()
	if firstErr != nil {
		e.logger.Errorf("automation: system overview failed: %v", firstErr)
		return nil, firstErr
	}
	return overview, nil
}
