package main

// @title KENTECH MULTIBOT Session Generator API
// @version 1.0.0
// @description Links a WhatsApp device by QR or pairing code and returns the SESSION_ID the bot runs with

// @contact.name gdbrns
// @contact.url https://github.com/gdbrns/go-whatsapp-multibot

// @license.name MIT
// @license.url https://github.com/gdbrns/go-whatsapp-multibot/blob/main/LICENSE

// @host localhost:3000
// @BasePath /

// @securityDefinitions.apikey AdminAuth
// @in header
// @name X-Admin-Secret
// @description Admin secret key for listing active session generators

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "multibot",
	Short:         "WhatsApp plugin bot and session generator",
	Long:          "Runs the WhatsApp plugin bot, the session generator web server, or the terminal session generators.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
