package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"parcel/internal/ai"
	"parcel/internal/config"
	"parcel/internal/maps"
	"parcel/internal/modules/assistant"
	"parcel/internal/modules/pricing"
	"parcel/internal/modules/quote"
)

func main() {
	source := flag.String("source", "Bangalore", "pickup place")
	destination := flag.String("destination", "Chennai", "drop-off place")
	weight := flag.Float64("weight", 2, "parcel weight in kg")
	question := flag.String("question", "Is this cheaper than sending it by train?", "follow-up question for the assistant")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var geocoder quote.Geocoder
	var router quote.Router
	if cfg.Maps.Provider == config.MapsProviderGoogle {
		g, err := maps.NewGoogleService(cfg.Maps.GoogleAPIKey)
		if err != nil {
			log.Fatalf("maps: %v", err)
		}
		geocoder, router = g, g
	} else {
		o := maps.NewOSMService(cfg.Maps.NominatimURL, cfg.Maps.OSRMURL, cfg.Maps.UserAgent)
		geocoder, router = o, o
	}

	logger := zap.NewNop()
	quotes := quote.NewService(geocoder, router, pricing.NewService(cfg.Pricing), quote.NewMemoryStore(0), quote.Options{}, logger, nil)

	var provider ai.LLMProvider
	if cfg.Assistant.Provider == config.AssistantProviderGemini {
		p, err := ai.NewGeminiProvider(ctx, cfg.Assistant.GeminiKey, assistantOptions(cfg.Assistant, cfg.Assistant.GeminiModel))
		if err != nil {
			log.Fatalf("Failed to initialize AI provider: %v", err)
		}
		defer p.Close()
		provider = p
	} else {
		provider = ai.NewOpenAIProvider(cfg.Assistant.OpenAIBaseURL, cfg.Assistant.OpenAIKey, assistantOptions(cfg.Assistant, cfg.Assistant.OpenAIModel))
	}
	helper := assistant.NewService(provider, quotes, cfg.Assistant.Timeout, logger, nil)

	const session = "ai-demo"
	order, err := quotes.Resolve(ctx, session, quote.Request{Source: *source, Destination: *destination, WeightKg: *weight})
	if err != nil {
		fmt.Fprintf(os.Stderr, "quote failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(assistant.RenderContext(order))

	fmt.Printf("\nUser: %s\n", *question)
	reply, err := helper.Answer(ctx, session, *question)
	if err != nil {
		log.Fatalf("Error asking assistant: %v", err)
	}
	fmt.Printf("AI Reply: %s\n", reply)
}

func assistantOptions(cfg config.AssistantConfig, model string) ai.Options {
	return ai.Options{Model: model, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
}
