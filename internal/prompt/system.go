// Package prompt builds the consultant system preamble from the user's
// planner state.
package prompt

import (
	"fmt"
	"strings"

	"dayflow/internal/planner"
)

const header = `당신은 사용자의 AI 컨설턴트입니다.
당신은 세계 최고의 동기부여가이자 목표 달성 전문가입니다.`

const (
	noneMarker       = "없음"
	unsetMarker      = "미정"
	unratedMarker    = "미설정"
	uncategorizedCat = "미분류"
)

// System renders the consultant preamble: a fixed persona header followed by
// today's schedule and the backlog of unfinished goals.
func System(todaysGoals, incompleteGoals []planner.Goal, categories []planner.Category) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n오늘의 할일:\n")
	b.WriteString(renderToday(todaysGoals, categories))
	b.WriteString("\n\n미완료된 목표:\n")
	b.WriteString(renderIncomplete(incompleteGoals, categories))
	return b.String()
}

func renderToday(goals []planner.Goal, categories []planner.Category) string {
	if len(goals) == 0 {
		return noneMarker
	}
	entries := make([]string, 0, len(goals))
	for _, g := range goals {
		start := unsetMarker
		if !g.Start.IsZero() {
			start = g.Start.Format("15:04")
		}
		end := unsetMarker
		if !g.End.IsZero() {
			end = g.End.Format("15:04")
		}
		entries = append(entries, fmt.Sprintf("- %s\n  %s-%s\n  카테고리: %s\n  중요도: %s",
			g.Title, start, end, categoryName(g.CategoryID, categories), importance(g)))
	}
	return strings.Join(entries, "\n\n")
}

func renderIncomplete(goals []planner.Goal, categories []planner.Category) string {
	if len(goals) == 0 {
		return noneMarker
	}
	entries := make([]string, 0, len(goals))
	for _, g := range goals {
		deadline := unsetMarker
		if !g.End.IsZero() {
			deadline = g.End.Format("01/02 15:04")
		}
		entries = append(entries, fmt.Sprintf("- %s\n  마감: %s\n  카테고리: %s\n  중요도: %s",
			g.Title, deadline, categoryName(g.CategoryID, categories), importance(g)))
	}
	return strings.Join(entries, "\n\n")
}

func categoryName(id string, categories []planner.Category) string {
	if id == "" {
		return uncategorizedCat
	}
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return uncategorizedCat
}

func importance(g planner.Goal) string {
	if g.Importance == 0 {
		return unratedMarker
	}
	return fmt.Sprintf("%d", g.Importance)
}
