package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
)

func strPtr(s string) *string { return &s }

func TestQualityCheckRecomputesScore(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	feedback, err := svc.Quality.GetFeedbackByRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("GetFeedbackByRequest failed: %v", err)
	}
	if feedback.QualityScore != nil {
		t.Fatalf("fresh feedback score = %v, want nil", *feedback.QualityScore)
	}

	if _, err := svc.Quality.RecordQualityCheck(ctx, feedback.ID, &RecordQualityCheckRequest{
		CheckName: "外观检验",
		Result:    entity.QualityResultPass,
	}, "test-user"); err != nil {
		t.Fatalf("RecordQualityCheck failed: %v", err)
	}
	if _, err := svc.Quality.RecordQualityCheck(ctx, feedback.ID, &RecordQualityCheckRequest{
		CheckName: "尺寸检验",
		Result:    entity.QualityResultFail,
	}, "test-user"); err != nil {
		t.Fatalf("RecordQualityCheck failed: %v", err)
	}

	feedback, _ = svc.Quality.GetFeedback(ctx, feedback.ID)
	if feedback.QualityScore == nil || *feedback.QualityScore != 50 {
		t.Fatalf("score = %v, want 50", feedback.QualityScore)
	}

	// 删除失败项后分数回到100
	checks, err := svc.Quality.GetFeedback(ctx, feedback.ID)
	if err != nil {
		t.Fatalf("GetFeedback failed: %v", err)
	}
	var failID string
	for _, c := range checks.Checks {
		if c.Result == entity.QualityResultFail {
			failID = c.ID
		}
	}
	if failID == "" {
		t.Fatal("failed check not found in feedback")
	}
	if err := svc.Quality.DeleteQualityCheck(ctx, failID); err != nil {
		t.Fatalf("DeleteQualityCheck failed: %v", err)
	}
	feedback, _ = svc.Quality.GetFeedback(ctx, feedback.ID)
	if feedback.QualityScore == nil || *feedback.QualityScore != 100 {
		t.Fatalf("score after delete = %v, want 100", feedback.QualityScore)
	}
}

func TestGetCheckByID(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	feedback, err := svc.Quality.GetFeedbackByRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("GetFeedbackByRequest failed: %v", err)
	}
	created, err := svc.Quality.RecordQualityCheck(ctx, feedback.ID, &RecordQualityCheckRequest{
		CheckName: "硬度测试",
		Result:    entity.QualityResultPass,
	}, "test-user")
	if err != nil {
		t.Fatalf("RecordQualityCheck failed: %v", err)
	}

	check, err := svc.Quality.GetCheck(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetCheck failed: %v", err)
	}
	if check.CheckName != "硬度测试" || check.FeedbackID != feedback.ID {
		t.Fatalf("check = %+v", check)
	}

	if _, err := svc.Quality.GetCheck(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCheck on malformed id = %v, want ErrNotFound", err)
	}
}

func TestQualityIssueEventFiresOnlyOnEnteringFailingClass(t *testing.T) {
	db, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	feedback, err := svc.Quality.GetFeedbackByRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("GetFeedbackByRequest failed: %v", err)
	}

	// pending 不属于失败类，不发事件
	check, err := svc.Quality.RecordQualityCheck(ctx, feedback.ID, &RecordQualityCheckRequest{
		CheckName: "气密性测试",
		Result:    entity.QualityResultPending,
	}, "test-user")
	if err != nil {
		t.Fatalf("RecordQualityCheck failed: %v", err)
	}
	if got := countEvents(t, db, entity.TopicQualityIssue); got != 0 {
		t.Fatalf("events after pending = %d, want 0", got)
	}

	// 进入失败类发一次
	if _, err := svc.Quality.UpdateQualityCheck(ctx, check.ID, &UpdateQualityCheckRequest{
		Result: strPtr(entity.QualityResultFail),
	}); err != nil {
		t.Fatalf("UpdateQualityCheck failed: %v", err)
	}
	if got := countEvents(t, db, entity.TopicQualityIssue); got != 1 {
		t.Fatalf("events after fail = %d, want 1", got)
	}

	// 停留在失败类内编辑不重复发
	if _, err := svc.Quality.UpdateQualityCheck(ctx, check.ID, &UpdateQualityCheckRequest{
		Notes: strPtr("复测仍不合格"),
	}); err != nil {
		t.Fatalf("UpdateQualityCheck failed: %v", err)
	}
	if _, err := svc.Quality.UpdateQualityCheck(ctx, check.ID, &UpdateQualityCheckRequest{
		Result: strPtr(entity.QualityResultNeedsRework),
	}); err != nil {
		t.Fatalf("UpdateQualityCheck failed: %v", err)
	}
	if got := countEvents(t, db, entity.TopicQualityIssue); got != 1 {
		t.Fatalf("events while staying in failing class = %d, want 1", got)
	}

	// 离开失败类后再进入，重新发
	if _, err := svc.Quality.UpdateQualityCheck(ctx, check.ID, &UpdateQualityCheckRequest{
		Result: strPtr(entity.QualityResultPass),
	}); err != nil {
		t.Fatalf("UpdateQualityCheck failed: %v", err)
	}
	if _, err := svc.Quality.UpdateQualityCheck(ctx, check.ID, &UpdateQualityCheckRequest{
		Result: strPtr(entity.QualityResultFail),
	}); err != nil {
		t.Fatalf("UpdateQualityCheck failed: %v", err)
	}
	if got := countEvents(t, db, entity.TopicQualityIssue); got != 2 {
		t.Fatalf("events after re-entering failing class = %d, want 2", got)
	}

	// 直接以失败结果创建也发
	if _, err := svc.Quality.RecordQualityCheck(ctx, feedback.ID, &RecordQualityCheckRequest{
		CheckName: "跌落测试",
		Result:    entity.QualityResultNeedsRework,
	}, "test-user"); err != nil {
		t.Fatalf("RecordQualityCheck failed: %v", err)
	}
	if got := countEvents(t, db, entity.TopicQualityIssue); got != 3 {
		t.Fatalf("events after failing create = %d, want 3", got)
	}
}
