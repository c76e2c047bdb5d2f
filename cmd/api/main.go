// @title           Expert Foncier Béninois API
// @version         1.1.0
// @description     Chatbot spécialisé en droit foncier béninois: réponses en streaming SSE, conversations et base de connaissances.
// @termsOfService  http://swagger.io/terms/

// @contact.name    akolanti
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "landbot",
		Short:        "Expert Foncier Béninois chatbot API",
		Long:         "landbot serves the land-law chatbot API and manages its knowledge base.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file read before the process environment")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSetupCommand())
	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newMCPCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
