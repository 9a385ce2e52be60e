package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/img-edit-agent/studio/internal/agent"
	"github.com/img-edit-agent/studio/internal/config"
	"github.com/img-edit-agent/studio/internal/gateway"
	"github.com/img-edit-agent/studio/internal/gemini"
	"github.com/img-edit-agent/studio/internal/ollama"
	"github.com/img-edit-agent/studio/internal/openai"
	"github.com/img-edit-agent/studio/internal/providers"
)

func newAgentCmd() *cobra.Command {
	var (
		port        string
		provider    string
		model       string
		temperature float64
		publish     bool
	)

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the reference chat backend",
		Long: `Starts a chat backend implementing POST /chat for the studio.

Without --provider replies come from canned templates. With a provider the
message and the selected image titles are sent to an LLM.`,
		Example: `  # Template replies on port 8000
  studio agent

  # Gemini replies (needs GEMINI_API_KEY)
  studio agent --provider gemini

  # Answer edit requests with a generated copy stored in S3
  studio agent --publish-edits`,
		RunE: func(cmd *cobra.Command, args []string) error {
			responder, err := newResponder(provider, model, temperature)
			if err != nil {
				return err
			}

			if publish {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				responder = agent.EditResponder{
					Responder:  responder,
					Fetcher:    gateway.NewFetcher(),
					Objects:    newObjectStore(cmd.Context(), cfg),
					PresignTTL: cfg.PresignTTL,
				}
			}

			server := &http.Server{
				Addr:              ":" + port,
				Handler:           agent.New(responder).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return runServer(cmd.Context(), server, "Chat backend available")
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8000", "Port to listen on")
	cmd.Flags().StringVar(&provider, "provider", "", fmt.Sprintf("LLM provider %v (empty for template replies)", providers.Names))
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults per provider)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.7, "Sampling temperature")
	cmd.Flags().BoolVar(&publish, "publish-edits", false, "Attach a generated image to edit requests on selected images (needs S3)")

	return cmd
}

func newResponder(provider, model string, temperature float64) (agent.Responder, error) {
	if provider == "" {
		return agent.TemplateResponder{}, nil
	}

	if model == "" {
		m, err := providers.DefaultModel(provider)
		if err != nil {
			return nil, err
		}
		model = m
	}

	var p providers.Provider
	switch provider {
	case "gemini":
		p = gemini.New()
	case "openai":
		p = openai.New()
	case "ollama":
		p = ollama.New()
	default:
		return nil, fmt.Errorf("unknown provider %q (want one of %v)", provider, providers.Names)
	}

	return agent.LLMResponder{
		Provider:    p,
		Model:       model,
		Temperature: temperature,
		History:     agent.NewHistory(agent.DefaultHistoryTurns),
	}, nil
}
