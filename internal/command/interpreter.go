// Package command implements the deterministic command layer of the chat
// core: it scans a raw utterance for one of three fixed Korean command
// shapes (web search, save-to-board, create-goal) and extracts structured
// parameters. Rule order is fixed and the trigger phrases are mutually
// exclusive, so an utterance is never multiply-classified.
package command

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dayflow/internal/planner"
)

// Kind tags the interpretation outcome.
type Kind string

const (
	KindSearch Kind = "search"
	KindBoard  Kind = "board"
	KindGoal   Kind = "goal"
	KindNone   Kind = "none"
)

// Result is the outcome of interpreting one utterance. Content carries the
// user-visible confirmation or search result text.
type Result struct {
	Kind    Kind
	Content string
}

// None is the no-command result; the caller falls through to general chat.
var None = Result{Kind: KindNone}

// ErrNoRecentSearch is returned when a save-to-board utterance references
// the previous search result but none is cached.
var ErrNoRecentSearch = errors.New("최근 검색 결과가 없습니다")

// Trigger phrases. Presence of one selects the command shape.
const (
	searchTrigger = "검색해줘"
	boardTrigger  = "게시판에 올려줘"
	goalTrigger   = "추가해줘"
)

const (
	defaultBoardTitle = "새 게시글"
	goalImportance    = 5
)

var (
	titleRe        = regexp.MustCompile(`제목은\s+(.+?)\s+로`)
	goalCategoryRe = regexp.MustCompile(`(.+?)에\s+(.+?)\s+추가해줘`)
	lastSearchRe   = regexp.MustCompile(`방금\s*검색\s*결과`)
)

// Interpreter recognizes command shapes and dispatches their side effects to
// the injected collaborators. One instance per session; the last search
// result is cached here for reuse by a follow-up save-to-board command.
type Interpreter struct {
	searcher   planner.Searcher
	boards     planner.BoardCreator
	goals      planner.GoalCreator
	categories planner.CategoryLister
	logger     *zap.Logger
	now        func() time.Time

	mu         sync.Mutex
	lastSearch string
	hasSearch  bool
}

// Option customizes an Interpreter.
type Option func(*Interpreter)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Interpreter) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithClock overrides the time source, used by tests for deterministic dates.
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) {
		if now != nil {
			i.now = now
		}
	}
}

// New creates an interpreter bound to the given collaborators.
func New(searcher planner.Searcher, boards planner.BoardCreator, goals planner.GoalCreator, categories planner.CategoryLister, opts ...Option) *Interpreter {
	i := &Interpreter{
		searcher:   searcher,
		boards:     boards,
		goals:      goals,
		categories: categories,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Interpret classifies the utterance and executes the matched command's side
// effect. A collaborator failure propagates; the utterance is never silently
// downgraded to general chat once a trigger phrase matched.
func (i *Interpreter) Interpret(ctx context.Context, utterance string) (Result, error) {
	utterance = strings.TrimSpace(utterance)

	switch {
	case strings.HasSuffix(utterance, searchTrigger):
		return i.interpretSearch(ctx, utterance)
	case strings.Contains(utterance, boardTrigger):
		return i.interpretBoard(ctx, utterance)
	case strings.Contains(utterance, goalTrigger):
		return i.interpretGoal(ctx, utterance)
	}
	return None, nil
}

// interpretSearch strips the trailing trigger and queries the search
// collaborator synchronously. The result is cached for reuse.
func (i *Interpreter) interpretSearch(ctx context.Context, utterance string) (Result, error) {
	query := strings.TrimSpace(strings.TrimSuffix(utterance, searchTrigger))

	i.logger.Debug("search command", zap.String("query", query))
	text, err := i.searcher.Search(ctx, query)
	if err != nil {
		return None, fmt.Errorf("검색 실패: %w", err)
	}

	i.mu.Lock()
	i.lastSearch = text
	i.hasSearch = true
	i.mu.Unlock()

	return Result{Kind: KindSearch, Content: text}, nil
}

// interpretBoard extracts title, board category, and content, then posts to
// the board collaborator. Sub-extractions are independent of each other.
func (i *Interpreter) interpretBoard(ctx context.Context, utterance string) (Result, error) {
	title := defaultBoardTitle
	content := utterance

	if m := titleRe.FindStringSubmatch(utterance); m != nil {
		title = m[1]
		content = strings.TrimSpace(titleRe.ReplaceAllString(content, ""))
	}

	category := planner.BoardInfo
	switch {
	case strings.Contains(utterance, "아이디어 게시판"):
		category = planner.BoardIdea
		content = stripOnce(content, "아이디어 "+boardTrigger)
	case strings.Contains(utterance, "정보 게시판"):
		category = planner.BoardInfo
		content = stripOnce(content, "정보 "+boardTrigger)
	default:
		content = stripOnce(content, boardTrigger)
	}

	if lastSearchRe.MatchString(utterance) {
		i.mu.Lock()
		cached, ok := i.lastSearch, i.hasSearch
		i.mu.Unlock()
		if !ok {
			return None, ErrNoRecentSearch
		}
		content = cached
	}

	i.logger.Debug("board command",
		zap.String("title", title),
		zap.String("category", string(category)))

	if _, err := i.boards.CreateBoard(ctx, planner.NewBoard{
		Title:    title,
		Content:  content,
		Category: category,
	}); err != nil {
		return None, fmt.Errorf("게시글 저장 실패: %w", err)
	}

	label := "정보"
	if category == planner.BoardIdea {
		label = "아이디어"
	}
	return Result{
		Kind:    KindBoard,
		Content: fmt.Sprintf("게시글이 %s 게시판에 저장되었습니다.", label),
	}, nil
}

// interpretGoal runs the strip-and-consume extraction passes in order:
// category, date, time, exact-hour marker. Each pass operates on text
// already narrowed by the previous ones; the residue becomes the title.
func (i *Interpreter) interpretGoal(ctx context.Context, utterance string) (Result, error) {
	title := stripOnce(utterance, goalTrigger)

	categoryID, narrowed, err := i.extractCategory(ctx, utterance)
	if err != nil {
		return None, err
	}
	if narrowed != "" {
		title = narrowed
	}

	title, sched := extractSchedule(title, utterance, i.now())

	i.logger.Debug("goal command",
		zap.String("title", title),
		zap.String("category_id", categoryID),
		zap.Time("start", sched.Start),
		zap.Time("end", sched.End))

	if _, err := i.goals.CreateGoal(ctx, planner.NewGoal{
		Title:      title,
		CategoryID: categoryID,
		Start:      sched.Start,
		End:        sched.End,
		Status:     planner.StatusNotStarted,
		Importance: goalImportance,
	}); err != nil {
		return None, fmt.Errorf("목표 추가 실패: %w", err)
	}

	return Result{Kind: KindGoal, Content: "목표가 추가되었습니다."}, nil
}

// extractCategory matches "<category>에 <title> 추가해줘" and resolves the
// captured name against the category list (exact, case-sensitive). On a hit
// it returns the category ID and the captured title span; otherwise the
// utterance is left for the remaining passes.
func (i *Interpreter) extractCategory(ctx context.Context, utterance string) (id, title string, err error) {
	m := goalCategoryRe.FindStringSubmatch(utterance)
	if m == nil {
		return "", "", nil
	}

	categories, err := i.categories.ListCategories(ctx)
	if err != nil {
		return "", "", fmt.Errorf("카테고리 조회 실패: %w", err)
	}

	name := strings.TrimSpace(m[1])
	for _, c := range categories {
		if c.Name == name {
			return c.ID, strings.TrimSpace(m[2]), nil
		}
	}
	return "", "", nil
}
