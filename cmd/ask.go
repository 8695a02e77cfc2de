package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tablechat-cli/internal/ai"
	"github.com/KaramelBytes/tablechat-cli/internal/chatbot"
	"github.com/KaramelBytes/tablechat-cli/internal/dataset"
	"github.com/KaramelBytes/tablechat-cli/internal/utils"
)

var (
	askModel       string
	askProvider    string
	askMaxTokens   int
	askTemp        float64
	askStream      bool
	askTimeoutSec  int
	askDryRun      bool
	askPrintPrompt bool
	askJSON        bool
	askOutputPath  string
)

type askResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Dataset  string `json:"dataset"`
}

var askCmd = &cobra.Command{
	Use:   "ask <file> <question...>",
	Short: "Ask a one-shot question about a CSV/TSV file",
	Long: `Loads the file, builds an analyst prompt around its summary, and asks
the configured model a single question. Use --dry-run to see token and
cost estimates without calling the provider.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		question := strings.TrimSpace(strings.Join(args[1:], " "))
		if question == "" {
			return fmt.Errorf("question must not be empty")
		}

		ds, err := dataset.Load(path, dataset.DefaultOptions())
		if err != nil {
			return err
		}

		rt, provider, err := buildRuntime(cfg, askProvider)
		if err != nil {
			return err
		}
		model := effectiveModel(cfg, provider, askModel)

		botCfg := chatbot.Config{
			Model:       model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}
		if askMaxTokens > 0 {
			botCfg.MaxTokens = askMaxTokens
		}
		if cmd.Flags().Changed("temp") {
			botCfg.Temperature = askTemp
		}
		bot := chatbot.New(rt, botCfg, nil, log)
		if err := bot.Adopt(ds); err != nil {
			return err
		}

		system, user, err := bot.AnalysisPrompt(question)
		if err != nil {
			return err
		}
		promptTokens := utils.CountTokens(system) + utils.CountTokens(user)
		if mi, ok := ai.LookupModel(model); ok && promptTokens > mi.ContextTokens {
			fmt.Fprintf(os.Stderr, "⚠ Warning: prompt (~%d tokens) exceeds the %s context window (%d tokens)\n",
				promptTokens, model, mi.ContextTokens)
		}
		if cost, ok := ai.EstimateCostUSD(model, promptTokens, botCfg.MaxTokens); ok && cost > 0 {
			fmt.Fprintf(os.Stderr, "Estimated cost: ~$%.4f (%d prompt tokens, up to %d completion tokens)\n",
				cost, promptTokens, botCfg.MaxTokens)
		}
		if askPrintPrompt || askDryRun {
			fmt.Println("--- system ---")
			fmt.Println(system)
			fmt.Println("--- user ---")
			fmt.Println(user)
		}
		if askDryRun {
			return nil
		}

		timeout := 180 * time.Second
		if askTimeoutSec > 0 {
			timeout = time.Duration(askTimeoutSec) * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var onDelta func(string)
		if askStream && !askJSON && askOutputPath == "" {
			onDelta = func(delta string) { fmt.Print(delta) }
		}
		answer, err := bot.AnalyzeStream(ctx, question, onDelta)
		if err != nil {
			return friendlyError(err, provider, model)
		}
		if onDelta != nil {
			fmt.Println()
			return nil
		}

		var out []byte
		if askJSON {
			out, err = utils.PrettyJSON(askResult{
				Question: question,
				Answer:   answer,
				Model:    model,
				Provider: provider,
				Dataset:  ds.Name,
			})
			if err != nil {
				return err
			}
		} else {
			out = []byte(answer)
		}

		if askOutputPath != "" {
			if err := utils.SafeWriteFile(askOutputPath, append(out, '\n')); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote answer to %s\n", askOutputPath)
			return nil
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askModel, "model", "", "model to ask (overrides config)")
	askCmd.Flags().StringVar(&askProvider, "provider", "", "provider: gemini|openrouter|ollama (overrides config)")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "completion token cap (overrides config)")
	askCmd.Flags().Float64Var(&askTemp, "temp", 0.7, "sampling temperature (overrides config)")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer as it arrives")
	askCmd.Flags().IntVar(&askTimeoutSec, "timeout-sec", 0, "per-request timeout in seconds (default 180)")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "print the prompt and estimates without calling the provider")
	askCmd.Flags().BoolVar(&askPrintPrompt, "print-prompt", false, "print the prompt before asking")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "emit the answer as JSON")
	askCmd.Flags().StringVarP(&askOutputPath, "output", "o", "", "optional path to write the answer")
}
