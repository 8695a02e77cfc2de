package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tablechat-cli/internal/chatbot"
	"github.com/KaramelBytes/tablechat-cli/internal/dataset"
	"github.com/KaramelBytes/tablechat-cli/internal/history"
	"github.com/KaramelBytes/tablechat-cli/internal/visualizer"
)

const banner = "============================================================"

// session wires the chatbot, the chart generator, and the terminal loop.
type session struct {
	bot      *chatbot.Chatbot
	viz      *visualizer.Visualizer
	store    *history.Store
	provider string
	model    string
	plotsDir string
}

func newSession() (*session, error) {
	rt, provider, err := buildRuntime(cfg, rootProvider)
	if err != nil {
		return nil, err
	}
	model := effectiveModel(cfg, provider, rootModel)

	var store *history.Store
	if cfg != nil && cfg.HistoryPath != "" {
		store, err = history.Open(cfg.HistoryPath)
		if err != nil {
			// Chat still works without persistence.
			log.Debug("history store unavailable", zap.Error(err))
			store = nil
		}
	}

	bot := chatbot.New(rt, chatbot.Config{
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, store, log)

	plotsDir := rootPlotsDir
	if plotsDir == "" && cfg != nil {
		plotsDir = cfg.PlotsDir
	}
	if plotsDir == "" {
		plotsDir = "plots"
	}

	return &session{
		bot:      bot,
		viz:      visualizer.New(visualizer.DefaultOptions(), log),
		store:    store,
		provider: provider,
		model:    model,
		plotsDir: plotsDir,
	}, nil
}

func (s *session) close() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

// runSession drives the full pipeline when a CSV path is given, and the
// bare command loop otherwise.
func runSession(csvPath string) error {
	fmt.Println(banner)
	fmt.Println("TableChat — talk to your CSV data")
	fmt.Println(banner)
	fmt.Println()

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	if csvPath != "" {
		if _, err := os.Stat(csvPath); err != nil {
			return fmt.Errorf("file not found: %s", csvPath)
		}
		fmt.Printf("Loading dataset: %s\n", csvPath)
		if err := s.load(csvPath); err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}

		fmt.Println("\n" + banner)
		fmt.Println("Generating Analysis...")
		fmt.Printf("%s\n\n", banner)
		s.analyze("")

		if !rootNoPlots {
			fmt.Println("\n" + banner)
			fmt.Println("Generating Visualizations...")
			fmt.Printf("%s\n\n", banner)
			s.plots()
		}

		fmt.Println("\n" + banner)
		fmt.Println("Interactive Chat Mode")
		fmt.Println(banner)
		fmt.Println("Ask questions about your data! Type 'exit' to quit.")
		fmt.Println()
	} else {
		fmt.Println("Commands:")
		fmt.Println("  load <file_path>  - Load a CSV file")
		fmt.Println("  analyze           - Get automatic analysis")
		fmt.Println("  plots             - Generate visualizations")
		fmt.Println("  exit              - Quit")
		fmt.Println()
	}

	return s.loop()
}

// loop reads commands until exit or EOF.
func (s *session) loop() error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\n👋 Goodbye!")
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch lower := strings.ToLower(input); {
		case lower == "exit" || lower == "quit" || lower == "q":
			fmt.Println("👋 Goodbye!")
			return nil
		case strings.HasPrefix(lower, "load "):
			path := strings.TrimSpace(input[5:])
			if _, err := os.Stat(path); err != nil {
				fmt.Printf("File not found: %s\n", path)
				continue
			}
			if err := s.load(path); err != nil {
				fmt.Printf("✗ Error loading dataset: %v\n", err)
				continue
			}
			fmt.Println("✓ Dataset loaded successfully!")
		case lower == "analyze":
			if !s.requireDataset() {
				continue
			}
			fmt.Println("\nAnalyzing...")
			fmt.Println()
			s.analyze("")
			fmt.Println()
		case lower == "plots":
			if !s.requireDataset() {
				continue
			}
			fmt.Println("\nGenerating visualizations...")
			fmt.Println()
			s.plots()
			fmt.Println()
		case lower == "help":
			fmt.Println("Commands: load <file_path> | analyze | plots | exit — anything else is asked to the model")
		default:
			if !s.requireDataset() {
				continue
			}
			s.chat(input)
		}
	}
}

func (s *session) requireDataset() bool {
	if s.bot.Loaded() {
		return true
	}
	fmt.Println("Please load a dataset first using 'load <file_path>'")
	return false
}

func (s *session) load(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ds, err := s.bot.LoadData(ctx, path, dataset.DefaultOptions())
	if err != nil {
		return err
	}
	rows, cols := ds.Shape()
	fmt.Printf("✓ Loaded dataset: %d rows, %d columns\n", rows, cols)
	return nil
}

// analyze prints the offline summary and, unless disabled, the model's
// narrative insights on top of it.
func (s *session) analyze(query string) {
	fmt.Println(s.bot.Dataset().Summary())
	if rootNoAI {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
	defer cancel()
	answer, err := s.bot.Analyze(ctx, query)
	if err != nil {
		fmt.Printf("⚠ AI analysis unavailable: %v\n", friendlyError(err, s.provider, s.model))
		return
	}
	fmt.Println(answer)
}

func (s *session) plots() {
	paths, err := s.viz.Generate(s.bot.Dataset(), s.plotsDir)
	if err != nil {
		fmt.Printf("⚠ Error generating visualizations: %v\n", err)
		return
	}
	fmt.Printf("✓ Generated %d visualizations in '%s'\n", len(paths), s.plotsDir)
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}
}

func (s *session) chat(input string) {
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
	defer cancel()
	fmt.Print("\n🤖 Assistant: ")
	streamed := false
	answer, err := s.bot.Chat(ctx, input, func(delta string) {
		streamed = true
		fmt.Print(delta)
	})
	if err != nil {
		if errors.Is(err, chatbot.ErrNoDataset) {
			fmt.Println("Please load a dataset first using 'load <file_path>'")
			return
		}
		fmt.Printf("\n✗ Error: %v\n", friendlyError(err, s.provider, s.model))
		return
	}
	if streamed {
		fmt.Println()
	} else {
		fmt.Println(answer)
	}
	fmt.Println()
}
