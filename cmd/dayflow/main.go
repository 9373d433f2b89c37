// dayflow is a Korean personal-productivity chat assistant. Utterances that
// match a command shape (검색해줘, 게시판에 올려줘, 추가해줘) are executed
// deterministically against the local planner; everything else goes to the
// configured LLM provider.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dayflow/internal/chat"
	"dayflow/internal/command"
	"dayflow/internal/config"
	"dayflow/internal/logging"
	"dayflow/internal/orchestrator"
	"dayflow/internal/prompt"
	"dayflow/internal/provider"
	"dayflow/internal/search"
	"dayflow/internal/store"
)

var (
	configPath   string
	providerName string
	modelName    string
	dbPath       string
	searchTool   bool
	noStream     bool
	verbose      bool

	logger *zap.Logger
)

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var rootCmd = &cobra.Command{
	Use:           "dayflow",
	Short:         "dayflow - 한국어 일정 관리 채팅 비서",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `dayflow is a chat assistant for personal goal and schedule management.

Command-shaped utterances run locally and deterministically:
  <검색어> 검색해줘          web search via Perplexity
  게시판에 올려줘            post the last search result to a board
  <제목> 추가해줘            create a scheduled goal

Everything else is answered by the configured LLM provider
(Gemini, Anthropic, or OpenAI).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [utterance]",
	Short: "Process a single utterance and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		streamed := false
		reply, err := app.orch.SendTurn(cmd.Context(), strings.Join(args, " "), app.turnOptions(func(frag string) {
			streamed = true
			fmt.Print(assistantStyle.Render(frag))
		}))
		if err != nil {
			return fmt.Errorf("%s", orchestrator.UserMessage(err))
		}
		if streamed {
			fmt.Println()
		} else {
			fmt.Println(assistantStyle.Render(reply))
		}
		return nil
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage goal categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Register a goal category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		id, err := app.store.CreateCategory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("카테고리 %q 등록 (%s)\n", args[0], id)
		return nil
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goal categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		cats, err := app.store.ListCategories(cmd.Context())
		if err != nil {
			return err
		}
		if len(cats) == 0 {
			fmt.Println(mutedStyle.Render("등록된 카테고리가 없습니다."))
			return nil
		}
		for _, c := range cats {
			fmt.Printf("%s  %s\n", mutedStyle.Render(c.ID), c.Name)
		}
		return nil
	},
}

// app holds the wired application graph.
type app struct {
	cfg      config.Config
	store    *store.SQLiteStore
	orch     *orchestrator.Orchestrator
	provider provider.Provider
	model    string
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if providerName != "" {
		cfg.Provider = providerName
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	p, err := cfg.DetectProvider()
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel(p)
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry(cfg.Credentials(), logger)
	client, err := registry.Client(p)
	if err != nil {
		db.Close()
		return nil, err
	}

	memOpts := []chat.MemoryOption{chat.WithLogger(logger.Named("memory"))}
	if cfg.Memory.MaxBytes > 0 {
		memOpts = append(memOpts, chat.WithMaxBytes(cfg.Memory.MaxBytes))
	}
	memory := chat.NewMemory(provider.Summarizer(client, model), memOpts...)

	searcher := search.NewPerplexityClientWithConfig(func() search.PerplexityConfig {
		sc := search.DefaultPerplexityConfig(cfg.Keys.Perplexity)
		sc.Logger = logger.Named("search")
		return sc
	}())

	interp := command.New(searcher, db, db, db,
		command.WithLogger(logger.Named("command")))

	orch := orchestrator.New(registry, interp, memory,
		orchestrator.WithLogger(logger.Named("orchestrator")))

	a := &app{cfg: cfg, store: db, orch: orch, provider: p, model: model}
	if err := a.installPreamble(ctx); err != nil {
		logger.Warn("system preamble unavailable", zap.Error(err))
	}
	return a, nil
}

// installPreamble loads today's schedule and the unfinished backlog into the
// consultant system message.
func (a *app) installPreamble(ctx context.Context) error {
	now := time.Now()
	today, err := a.store.GoalsOn(ctx, now)
	if err != nil {
		return err
	}
	incomplete, err := a.store.IncompleteGoals(ctx, now)
	if err != nil {
		return err
	}
	categories, err := a.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	return a.orch.SetSystemPreamble(ctx, prompt.System(today, incomplete, categories))
}

func (a *app) turnOptions(onFragment func(string)) orchestrator.TurnOptions {
	return orchestrator.TurnOptions{
		Provider:         a.provider,
		Model:            a.model,
		EnableSearchTool: searchTool,
		Streaming:        !noStream,
		OnFragment:       onFragment,
	}
}

func (a *app) Close() {
	a.store.Close()
}

func runInteractive(ctx context.Context) error {
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Println(mutedStyle.Render(fmt.Sprintf("dayflow — %s (%s). /exit 종료, /reset 대화 초기화, /history 기록", app.provider, app.model)))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(promptStyle.Render("나 > "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			app.orch.ResetMemory()
			if err := app.installPreamble(ctx); err != nil {
				logger.Warn("system preamble unavailable", zap.Error(err))
			}
			fmt.Println(mutedStyle.Render("대화를 초기화했습니다."))
			continue
		case "/history":
			printHistory(app.orch.History())
			continue
		}

		streamed := false
		reply, err := app.orch.SendTurn(ctx, line, app.turnOptions(func(frag string) {
			streamed = true
			fmt.Print(assistantStyle.Render(frag))
		}))
		if err != nil {
			fmt.Println(errorStyle.Render(orchestrator.UserMessage(err)))
			continue
		}
		if streamed {
			fmt.Println()
		} else {
			fmt.Println(assistantStyle.Render(reply))
		}
	}
}

func printHistory(msgs []chat.Message) {
	if len(msgs) == 0 {
		fmt.Println(mutedStyle.Render("기록이 없습니다."))
		return
	}
	for _, m := range msgs {
		label := string(m.Role)
		switch m.Role {
		case chat.RoleUser:
			label = "나"
		case chat.RoleAssistant:
			label = "비서"
		case chat.RoleSystem:
			label = "시스템"
		}
		fmt.Printf("%s %s\n", promptStyle.Render(label+":"), m.Content)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "LLM provider (gemini, anthropic, openai)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "model identifier")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path")
	rootCmd.PersistentFlags().BoolVar(&searchTool, "search-tool", false, "enable the provider web-search tool (Gemini)")
	rootCmd.PersistentFlags().BoolVar(&noStream, "no-stream", false, "disable streaming responses")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	categoryCmd.AddCommand(categoryAddCmd, categoryListCmd)
	rootCmd.AddCommand(askCmd, categoryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
