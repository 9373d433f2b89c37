// Package planner holds the domain types of the productivity application
// (goals, boards, categories) and the collaborator contracts the chat core
// consumes. Implementations live elsewhere (internal/store, internal/search);
// this package stays import-light so every layer can depend on it.
package planner

import (
	"context"
	"time"
)

// BoardCategory identifies which board a post belongs to.
type BoardCategory string

const (
	BoardInfo       BoardCategory = "info"
	BoardIdea       BoardCategory = "idea"
	BoardReflection BoardCategory = "reflection"
)

// Valid reports whether the category is one of the fixed set.
func (b BoardCategory) Valid() bool {
	switch b {
	case BoardInfo, BoardIdea, BoardReflection:
		return true
	}
	return false
}

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	StatusNotStarted GoalStatus = "진행 전"
	StatusInProgress GoalStatus = "진행 중"
	StatusDone       GoalStatus = "완료"
)

// Category is a user-defined goal category.
type Category struct {
	ID   string
	Name string
}

// Goal is a scheduled objective.
type Goal struct {
	ID         string
	Title      string
	CategoryID string // empty when uncategorized
	Start      time.Time
	End        time.Time
	Status     GoalStatus
	Importance int
}

// Board is a single board post.
type Board struct {
	ID       string
	Title    string
	Content  string
	Category BoardCategory
}

// NewGoal carries the fields needed to create a goal.
type NewGoal struct {
	Title      string
	CategoryID string
	Start      time.Time
	End        time.Time
	Status     GoalStatus
	Importance int
}

// NewBoard carries the fields needed to create a board post.
type NewBoard struct {
	Title    string
	Content  string
	Category BoardCategory
}

// Searcher performs a synchronous web search and returns the result text.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// BoardCreator persists a new board post and returns its identifier.
type BoardCreator interface {
	CreateBoard(ctx context.Context, b NewBoard) (string, error)
}

// GoalCreator persists a new goal and returns its identifier.
type GoalCreator interface {
	CreateGoal(ctx context.Context, g NewGoal) (string, error)
}

// CategoryLister returns all categories for exact-name matching.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]Category, error)
}
