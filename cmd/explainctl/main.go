package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-explainer/internal/bootstrap"
	"github.com/kirillkom/document-explainer/internal/config"
	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/core/usecase"
	"github.com/kirillkom/document-explainer/internal/infrastructure/auth/jwtauth"
	"github.com/kirillkom/document-explainer/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/document-explainer/internal/infrastructure/llm/openai"
	"github.com/kirillkom/document-explainer/internal/infrastructure/resilience"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "explainctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explainctl",
		Short: "Document explainer operator CLI",
		Long: `explainctl runs the explanation pipeline on local files without the API,
and issues bearer tokens for the API and MCP server.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newExtractCmd(),
		newAnalyzeCmd(),
		newTokenCmd(),
	)
	return cmd
}

func newExtractCmd() *cobra.Command {
	var maxPages int
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the text extracted from a PDF or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := extractFile(cmd.Context(), args[0], maxPages)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Stop after this many pages (0 reads all)")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		documentType string
		readingStyle string
		promptOnly   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Explain a local document with the configured model and print the JSON result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			text, err := extractFile(cmd.Context(), args[0], cfg.PDFMaxPages)
			if err != nil {
				return err
			}
			prompt := usecase.BuildExplanationPrompt(
				domain.ParseDocumentType(documentType),
				domain.ParseReadingStyle(readingStyle),
				text,
			)
			if promptOnly {
				return writeJSON(cmd, prompt)
			}

			explainer := openai.NewExplainer(openai.New(cfg.OpenAIAPIKey, openai.Options{
				BaseURL:  cfg.OpenAIBaseURL,
				Model:    cfg.OpenAIModel,
				Timeout:  cfg.OpenAITimeout,
				Executor: resilience.NewExecutor(bootstrap.ModelCallPolicy(cfg)),
			}))
			result, err := explainer.Explain(cmd.Context(), prompt)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&documentType, "type", string(domain.DocumentTypeOther), "Document type (personal, employment, financial, business, policy, technical, other)")
	cmd.Flags().StringVar(&readingStyle, "style", string(domain.ReadingStylePlain), "Reading style (plain or structured)")
	cmd.Flags().BoolVar(&promptOnly, "prompt-only", false, "Print the assembled prompt instead of calling the model")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token using JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			auth, err := jwtauth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
			if err != nil {
				return err
			}
			if strings.TrimSpace(userID) == "" {
				userID = email
			}
			token, err := auth.Issue(domain.Identity{UserID: userID, Email: email}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Owner id for tokens without an email; must match --email when both are set")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func extractFile(ctx context.Context, path string, maxPages int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return pdftext.NewExtractor(maxPages).Extract(ctx, data)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
