package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/data/redisStore"
	"github.com/spf13/cobra"
)

func newSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Check the environment and print setup instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, io.Discard)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSetup(out, settings)

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			redisStore.Configure(redisStore.Options{Addr: settings.RedisAddr, Password: settings.RedisPassword})
			if s := redisStore.GetRedisStore(ctx, config.RedisJobStore); s != nil {
				fmt.Fprintf(out, "[ok]   Redis joignable sur %s\n", settings.RedisAddr)
			} else {
				fmt.Fprintf(out, "[warn] Redis injoignable sur %s: statut des jobs en mémoire, pas de cache d'historique\n", settings.RedisAddr)
			}

			if err := settings.Validate(); err != nil {
				fmt.Fprintf(out, "\nConfiguration incomplète:\n%v\n", err)
				return err
			}
			fmt.Fprintln(out, "\nConfiguration valide. Lancez `landbot serve`.")
			return nil
		},
	}
}

func printSetup(out io.Writer, s *config.Settings) {
	check := func(ok bool, label string) {
		mark := "[ok]  "
		if !ok {
			mark = "[miss]"
		}
		fmt.Fprintf(out, "%s %s\n", mark, label)
	}

	fmt.Fprintln(out, "Expert Foncier Béninois: vérification de la configuration")
	fmt.Fprintln(out)
	check(s.APIKey() != "", "GEMINI_API_KEY (ou GOOGLE_API_KEY)")
	check(s.LLMProvider != "openai" || s.OpenAIAPIKey != "", "OPENAI_API_KEY (LLM_PROVIDER=openai)")
	check(s.AuthToken != "" || s.Debug, "AUTH_TOKEN (obligatoire hors DEBUG)")
	check(s.AllowedHosts != "" || s.Debug, "ALLOWED_HOSTS (obligatoire hors DEBUG)")
	fmt.Fprintf(out, "       LLM_PROVIDER=%s GEMINI_MODEL=%s DATABASE_DRIVER=%s QDRANT=%s:%d\n",
		s.LLMProvider, s.GeminiModel, s.DatabaseDriver, s.QdrantHost, s.QdrantPort)

	if s.APIKey() == "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Pour obtenir une clé API Gemini:")
		fmt.Fprintln(out, "  1. Rendez-vous sur https://aistudio.google.com/app/apikey")
		fmt.Fprintln(out, "  2. Connectez-vous avec votre compte Google")
		fmt.Fprintln(out, "  3. Créez une clé API")
		fmt.Fprintln(out, "  4. Ajoutez GEMINI_API_KEY=<votre clé> au fichier .env")
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Services optionnels:")
	fmt.Fprintln(out, "  docker run -d -p 6333:6333 -p 6334:6334 qdrant/qdrant")
	fmt.Fprintln(out, "  docker run -d -p 6379:6379 redis")
	fmt.Fprintln(out, "Puis chargez la base de connaissances: landbot ingest --defaults")
}
