package prompt

import (
	"strings"
	"testing"
	"time"

	"dayflow/internal/planner"
)

var kst = time.FixedZone("KST", 9*3600)

func TestSystem_Empty(t *testing.T) {
	got := System(nil, nil, nil)

	if !strings.HasPrefix(got, "당신은 사용자의 AI 컨설턴트입니다.") {
		t.Errorf("preamble must open with the consultant persona, got %q", got)
	}
	if !strings.Contains(got, "오늘의 할일:\n없음") {
		t.Error("empty schedule must render 없음")
	}
	if !strings.Contains(got, "미완료된 목표:\n없음") {
		t.Error("empty backlog must render 없음")
	}
}

func TestSystem_TodaysGoals(t *testing.T) {
	categories := []planner.Category{{ID: "c1", Name: "운동"}}
	goals := []planner.Goal{
		{
			Title:      "아침 운동",
			CategoryID: "c1",
			Start:      time.Date(2026, 9, 1, 9, 0, 0, 0, kst),
			End:        time.Date(2026, 9, 1, 10, 0, 0, 0, kst),
			Importance: 5,
		},
		{
			Title: "회의 준비",
		},
	}

	got := System(goals, nil, categories)

	if !strings.Contains(got, "- 아침 운동\n  09:00-10:00\n  카테고리: 운동\n  중요도: 5") {
		t.Errorf("scheduled goal not rendered as expected:\n%s", got)
	}
	// No times, no category, no importance set.
	if !strings.Contains(got, "- 회의 준비\n  미정-미정\n  카테고리: 미분류\n  중요도: 미설정") {
		t.Errorf("bare goal must render the placeholder markers:\n%s", got)
	}
}

func TestSystem_IncompleteGoals(t *testing.T) {
	goals := []planner.Goal{
		{
			Title:      "보고서 제출",
			End:        time.Date(2026, 8, 30, 18, 0, 0, 0, kst),
			Importance: 8,
		},
	}

	got := System(nil, goals, nil)

	if !strings.Contains(got, "- 보고서 제출\n  마감: 08/30 18:00\n  카테고리: 미분류\n  중요도: 8") {
		t.Errorf("overdue goal not rendered as expected:\n%s", got)
	}
}

func TestSystem_UnknownCategoryFallsBack(t *testing.T) {
	goals := []planner.Goal{{Title: "정리", CategoryID: "gone"}}

	got := System(goals, nil, []planner.Category{{ID: "c1", Name: "운동"}})

	if !strings.Contains(got, "카테고리: 미분류") {
		t.Error("a dangling category id must render 미분류")
	}
}
