package scheduler

import (
	"context"
	"testing"
)

// TestAddCronDuplicateName 同名任务不允许重复注册.
func TestAddCronDuplicateName(t *testing.T) {
	s, err := NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	defer func() { _ = s.Stop() }()

	job := func(context.Context) {}
	ctx := context.Background()

	if err := s.AddCron("demo", "* * * * *", job, ctx); err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	if err := s.AddCron("demo", "* * * * *", job, ctx); err == nil {
		t.Error("expected duplicate name error")
	}
}

// TestJobInfoLifecycle 注册后能查询，移除后查询报错.
func TestJobInfoLifecycle(t *testing.T) {
	s, err := NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	defer func() { _ = s.Stop() }()

	if err := s.AddCron("cleanup", "30 3 * * *", func(context.Context) {}, context.Background()); err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	info, err := s.GetJobInfoByName("cleanup")
	if err != nil {
		t.Fatalf("GetJobInfoByName: %v", err)
	}

	if info.CronExpr != "30 3 * * *" || info.Status != StatusScheduled {
		t.Errorf("unexpected job info: %+v", info)
	}

	if got := len(s.GetJobInfos()); got != 1 {
		t.Errorf("GetJobInfos len = %d, want 1", got)
	}

	if err := s.RemoveJobByName("cleanup"); err != nil {
		t.Fatalf("RemoveJobByName: %v", err)
	}

	if _, err := s.GetJobInfoByName("cleanup"); err == nil {
		t.Error("expected error after removal")
	}
}

// TestAddCronInvalidExpr 非法 cron 表达式报错.
func TestAddCronInvalidExpr(t *testing.T) {
	s, err := NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	defer func() { _ = s.Stop() }()

	if err := s.AddCron("bad", "not a cron", func(context.Context) {}, context.Background()); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}
