package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andrew/logistics-rag/pkg/config"
	"github.com/andrew/logistics-rag/pkg/dataset"
	"github.com/andrew/logistics-rag/pkg/llm"
	"github.com/andrew/logistics-rag/pkg/models"
	"github.com/andrew/logistics-rag/pkg/rag"
	"github.com/andrew/logistics-rag/pkg/vector"
)

var (
	downloadFlag    bool
	indexFlag       bool
	interactiveFlag bool
	demoFlag        bool
	queryFlag       string
	forceFlag       bool
	debugFlag       bool
	storeFlag       string
	envFileFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "logistics-rag",
	Short: "Logistics RAG assistant - question answering over logistics datasets",
	Long: `Logistics RAG assistant downloads public logistics datasets, indexes them
into a local vector store and answers natural-language questions about
shipments, carriers and freight rates using retrieval-augmented generation.`,
	Example: `  logistics-rag --download           # download the datasets
  logistics-rag --index              # index documents into the vector store
  logistics-rag --query "question"   # ask a single question
  logistics-rag --interactive        # interactive mode
  logistics-rag --demo               # demo with example questions`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&downloadFlag, "download", false, "Download the logistics datasets")
	flags.BoolVar(&indexFlag, "index", false, "Index the documents into the vector store")
	flags.StringVarP(&queryFlag, "query", "q", "", "Ask a single question")
	flags.BoolVarP(&interactiveFlag, "interactive", "i", false, "Start interactive mode")
	flags.BoolVar(&demoFlag, "demo", false, "Run a demo with example questions")
	flags.BoolVar(&forceFlag, "force", false, "Re-download datasets even if they exist")
	flags.BoolVar(&debugFlag, "debug", false, "Enable debug output")
	flags.StringVar(&storeFlag, "store", "", "Vector store backend (chromem or qdrant)")
	flags.StringVar(&envFileFlag, "env-file", "", "Path to the .env file (default ./.env)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(debugFlag)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(envFileFlag)
	if err != nil {
		return err
	}
	if storeFlag != "" {
		cfg.VectorStore = storeFlag
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx := context.Background()

	switch {
	case downloadFlag:
		return runDownload(ctx, cfg, logger)
	case indexFlag:
		return runIndex(ctx, cfg, logger)
	case queryFlag != "":
		return runQuery(ctx, cfg, logger, queryFlag)
	case interactiveFlag:
		return runInteractive(ctx, cfg, logger)
	case demoFlag:
		return runDemo(ctx, cfg, logger)
	default:
		if err := cmd.Help(); err != nil {
			return err
		}
		fmt.Println("\nQuickstart:")
		fmt.Println("  1. Put OPENAI_API_KEY in .env (or run a local Ollama server)")
		fmt.Println("  2. logistics-rag --download")
		fmt.Println("  3. logistics-rag --index")
		fmt.Println("  4. logistics-rag --interactive")
		return nil
	}
}

// newLogger builds the application logger. Debug mode enables the full
// development output, otherwise only warnings and errors show.
func newLogger(debug bool) (*zap.Logger, error) {
	logCfg := zap.NewDevelopmentConfig()
	if !debug {
		logCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return logCfg.Build()
}

func banner(title string) {
	line := strings.Repeat("=", 50)
	fmt.Println()
	fmt.Println(line)
	fmt.Println(title)
	fmt.Println(line)
	fmt.Println()
}

func runDownload(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	banner("DATASET DOWNLOAD")

	downloader := dataset.NewDownloader(logger)
	downloaded, err := downloader.Download(ctx, cfg.DataDir, forceFlag)
	if err != nil {
		return err
	}

	for name, path := range downloaded {
		fmt.Printf("  %s -> %s\n", name, path)
	}
	fmt.Println("\nDownload complete.")
	return nil
}

func runIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	banner("DOCUMENT INDEXING")

	loader := dataset.NewLoader(cfg.MaxSupplyChainRows, logger)
	docs, err := loader.LoadDocuments(cfg.DataDir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents to index; run with --download first")
	}
	fmt.Printf("Loaded %d documents.\n", len(docs))

	client, err := llm.NewClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	store, err := vector.NewStore(cfg, client, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("Embedding and indexing, this can take a while...")
	indexed, err := store.Index(ctx, docs)
	if err != nil {
		return err
	}

	fmt.Printf("\nIndexed %d documents. Indexing complete.\n", indexed)
	return nil
}

// openChain builds the store-backed chain and refuses to start when nothing
// has been indexed yet.
func openChain(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*rag.Chain, func(), error) {
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := vector.NewStore(cfg, client, logger)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	cleanup := func() {
		store.Close()
		client.Close()
	}

	count, err := store.Count(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if count == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no indexed data; run --download and then --index first")
	}
	fmt.Printf("Vector store ready with %d documents.\n", count)

	return rag.NewChain(store, client, cfg.TopK, logger), cleanup, nil
}

func runQuery(ctx context.Context, cfg *config.Config, logger *zap.Logger, question string) error {
	banner("LOGISTICS RAG ASSISTANT")

	chain, cleanup, err := openChain(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\nQuestion: %s\n\n", question)

	answer, err := chain.Answer(ctx, question)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n%s\n\n", boldCyan("Answer:"), answer)
	return nil
}

func runInteractive(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	banner("LOGISTICS RAG ASSISTANT")

	chain, cleanup, err := openChain(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Println("\nInteractive mode. Type 'exit' or 'quit' to leave.")
	fmt.Println("Type 'examples' to see example questions.")
	fmt.Println()

	var history []models.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("\nGoodbye!")
			return nil
		case "examples":
			fmt.Println("\nExample questions:")
			for i, q := range rag.ExampleQueries {
				fmt.Printf("  %d. %s\n", i+1, q)
			}
			fmt.Println()
			continue
		}

		fmt.Println("\nThinking...")
		reply, err := chain.AnswerWithHistory(ctx, question, history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			continue
		}

		fmt.Printf("\n%s %s\n\n", boldCyan("Assistant:"), reply.Content)
		fmt.Println(strings.Repeat("-", 40))
		fmt.Println()

		history = append(history,
			models.Message{Role: models.RoleUser, Content: question, Timestamp: time.Now()},
			reply,
		)
	}
	return scanner.Err()
}

func runDemo(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	banner("LOGISTICS RAG ASSISTANT - DEMO")

	chain, cleanup, err := openChain(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	demoQueries := rag.ExampleQueries[:3]
	reader := bufio.NewReader(os.Stdin)

	for i, question := range demoQueries {
		banner(fmt.Sprintf("Demo %d/%d", i+1, len(demoQueries)))
		fmt.Printf("Question: %s\n\n", question)

		answer, err := chain.Answer(ctx, question)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\n\n", boldCyan("Answer:"), answer)

		if i < len(demoQueries)-1 {
			fmt.Print("Press Enter to continue...")
			if _, err := reader.ReadString('\n'); err != nil {
				break
			}
		}
	}
	return nil
}
