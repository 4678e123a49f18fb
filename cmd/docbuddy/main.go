package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docbuddy/internal/chat"
	"docbuddy/internal/chunker"
	"docbuddy/internal/config"
	"docbuddy/internal/domain"
	"docbuddy/internal/embedding"
	"docbuddy/internal/llm"
	"docbuddy/internal/loader"
	"docbuddy/internal/service"
	"docbuddy/internal/summarizer"
	"docbuddy/internal/tui"
	"docbuddy/internal/vectorstore"
	"docbuddy/internal/watcher"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "", "Path to config YAML (default: ./config.yaml, then ~/.config/docbuddy/config.yaml)")
	watch := flag.Bool("watch", false, "Re-index automatically when the document changes on disk")
	flag.Parse()

	var docPath string
	switch args := flag.Args(); len(args) {
	case 0:
	case 1:
		docPath = args[0]
	default:
		fmt.Println("Usage: docbuddy [--config=config.yaml] [--watch] [document.pdf]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// Assemble components via interfaces
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "ollama":
		emb = embedding.NewOllamaEmbedder(embedding.OllamaConfig{
			BaseURL: cfg.Embedder.Ollama.BaseURL,
			Model:   cfg.Embedder.Ollama.Model,
			Timeout: time.Duration(cfg.Embedder.Ollama.TimeoutSecs) * time.Second,
		})
	case "openai":
		emb, err = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err != nil {
			log.Fatalf("openai embedder: %v", err)
		}
	case "gemini":
		ge, gerr := embedding.NewGeminiEmbedder(ctx, embedding.GeminiConfig{
			APIKeyEnv: cfg.Embedder.Gemini.APIKeyEnv,
			Model:     cfg.Embedder.Gemini.Model,
		})
		if gerr != nil {
			log.Fatalf("gemini embedder: %v", gerr)
		}
		defer ge.Close()
		emb = ge
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "character":
		ch = chunker.NewCharacterChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	case "sentence":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		log.Fatalf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var st domain.VectorStore
	switch cfg.VectorStore.Type {
	case "qdrant":
		st, err = vectorstore.NewQdrantStore(vectorstore.QdrantStoreConfig{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			UseTLS:     cfg.VectorStore.Qdrant.UseTLS,
			Collection: cfg.VectorStore.Qdrant.Collection,
		})
		if err != nil {
			log.Fatalf("qdrant store: %v", err)
		}
	case "chromem":
		st, err = vectorstore.NewChromemStore(vectorstore.ChromemStoreConfig{
			Path:       cfg.VectorStore.Chromem.Path,
			Collection: cfg.VectorStore.Chromem.Collection,
		})
		if err != nil {
			log.Fatalf("chromem store: %v", err)
		}
	case "memory":
		st = vectorstore.NewMemoryStore()
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}
	defer st.Close()

	var model domain.ChatModel
	switch cfg.LLM.Type {
	case "ollama":
		model = llm.NewOllamaChat(llm.OllamaConfig{
			BaseURL:     cfg.LLM.Ollama.BaseURL,
			Model:       cfg.LLM.Ollama.Model,
			Temperature: cfg.LLM.Ollama.Temperature,
			Timeout:     time.Duration(cfg.LLM.Ollama.TimeoutSecs) * time.Second,
		})
	case "gemini":
		gc, gerr := llm.NewGeminiChat(ctx, llm.GeminiConfig{
			APIKeyEnv:   cfg.LLM.Gemini.APIKeyEnv,
			Model:       cfg.LLM.Gemini.Model,
			Temperature: cfg.LLM.Gemini.Temperature,
		})
		if gerr != nil {
			log.Fatalf("gemini chat: %v", gerr)
		}
		defer gc.Close()
		model = gc
	default:
		log.Fatalf("unknown llm: %s", cfg.LLM.Type)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
		sum = nil
	default:
		log.Fatalf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	indexer := service.NewIndexer(loader.New(), ch, emb, st, sum, cfg.Summarizer.MaxSentences)
	engine := chat.NewEngine(emb, st, model, chat.Options{
		TopK:               cfg.Chat.TopK,
		HistoryWindow:      cfg.Chat.HistoryWindow,
		ContextTokenBudget: cfg.Chat.ContextTokenBudget,
		MinScore:           cfg.Chat.MinScore,
	})

	var changes <-chan struct{}
	if *watch {
		if docPath == "" {
			log.Fatal("--watch requires a document path argument")
		}
		fw, werr := watcher.New()
		if werr != nil {
			log.Fatalf("file watcher: %v", werr)
		}
		defer fw.Stop()
		changes, werr = fw.Watch(ctx, docPath)
		if werr != nil {
			log.Fatalf("file watcher: %v", werr)
		}
	}

	m := tui.New(indexer, engine, docPath, changes)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
