package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mdp/qrterminal/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gdbrns/go-whatsapp-multibot/internal/creds"
	"github.com/gdbrns/go-whatsapp-multibot/internal/provision"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/env"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/validation"
)

var (
	sessionDir string
	sessionOut string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Generate a SESSION_ID in the terminal",
}

var sessionQRCmd = &cobra.Command{
	Use:   "qr",
	Short: "Link a device by scanning a QR code",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "🚀 Starting WhatsApp Session Generator...")
		fmt.Fprintln(out, "⏳ Please wait for QR code to appear...")
		return generateSession(out, provision.Options{Method: provision.MethodQR})
	},
}

var sessionPairCmd = &cobra.Command{
	Use:   "pair [phone]",
	Short: "Link a device with a pairing code",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "🚀 KENTECH MULTIBOT - Pairing Code Generator")
		fmt.Fprintln(out, "===========================================")

		phone := ""
		if len(args) > 0 {
			phone = args[0]
		} else {
			p, err := promptPhone(cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
			phone = p
		}

		phone = validation.NormalizePhone(phone)
		if err := validation.ValidatePhone(phone); err != nil {
			fmt.Fprintln(out, "❌ Invalid phone number. Please include country code (e.g., 237670217260)")
			return err
		}

		// a previous link attempt would make WhatsApp reject the new code
		if err := creds.NewFileStore(sessionDir).Clear(); err != nil {
			return err
		}

		fmt.Fprintf(out, "📞 Generating pairing code for: +%s\n", phone)
		fmt.Fprintln(out, "⏳ Please wait...")
		return generateSession(out, provision.Options{Method: provision.MethodPairingCode, Phone: phone})
	},
}

func init() {
	sessionCmd.PersistentFlags().StringVar(&sessionDir, "dir", env.GetEnvStringOrDefault("SESSION_DIR", "auth_info_session"), "directory holding the linked device credentials")
	sessionCmd.PersistentFlags().StringVar(&sessionOut, "out", "session_id.txt", "file the SESSION_ID is written to")
	sessionCmd.AddCommand(sessionQRCmd, sessionPairCmd)
	rootCmd.AddCommand(sessionCmd)
}

func promptPhone(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "📱 Enter your WhatsApp phone number (with country code, no + sign): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read phone number")
	}
	return strings.TrimSpace(line), nil
}

func printCode(out io.Writer) func(provision.Method, string) {
	return func(method provision.Method, code string) {
		if method == provision.MethodPairingCode {
			fmt.Fprintln(out, "\n🔑 YOUR PAIRING CODE:")
			fmt.Fprintln(out, "===================")
			fmt.Fprintf(out, "📲 %s\n", code)
			fmt.Fprintln(out, "===================")
			fmt.Fprintln(out, "\n📝 Instructions:")
			fmt.Fprintln(out, "1. Open WhatsApp on your phone")
			fmt.Fprintln(out, "2. Go to Settings > Linked Devices")
			fmt.Fprintln(out, "3. Tap \"Link a Device\"")
			fmt.Fprintln(out, "4. Tap \"Link with phone number instead\"")
			fmt.Fprintf(out, "5. Enter this code: %s\n", code)
			fmt.Fprintln(out, "\n⏳ Waiting for you to enter the code in WhatsApp...")
			return
		}

		qrterminal.GenerateWithConfig(code, qrterminal.Config{
			HalfBlocks: true,
			Level:      qrterminal.L,
			Writer:     out,
			QuietZone:  1,
		})
		fmt.Fprintln(out, "\n📱 Scan the QR code above with WhatsApp")
		fmt.Fprintln(out, "Go to WhatsApp > Settings > Linked Devices > Link a Device")
	}
}

func printState(out io.Writer) func(provision.State) {
	attempt := 0
	return func(s provision.State) {
		switch s {
		case provision.StateAwaitingCredential:
			if attempt++; attempt > 1 {
				fmt.Fprintln(out, "🔄 Reconnecting...")
			}
		case provision.StateConnected:
			fmt.Fprintln(out, "✅ Successfully connected to WhatsApp!")
		}
	}
}

func generateSession(out io.Writer, opts provision.Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts.OnCode = printCode(out)
	opts.OnState = printState(out)

	flow, err := provision.NewFlow(provision.NewWhatsmeowTransport(sessionDir), creds.NewFileStore(sessionDir), opts)
	if err != nil {
		return err
	}

	token, err := flow.Run(ctx)
	return reportSession(out, token, err)
}

// reportSession prints the outcome of a flow and saves the token. A logout
// is returned so the command exits non-zero; an interrupt is not an error.
func reportSession(out io.Writer, token string, err error) error {
	switch {
	case errors.Is(err, provision.ErrLoggedOut):
		fmt.Fprintln(out, "❌ Connection closed. You are logged out.")
		return err
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(out, "\n👋 Session generation cancelled.")
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintln(out, "\n🔑 Your Session ID:")
	fmt.Fprintln(out, "=====================================")
	fmt.Fprintln(out, token)
	fmt.Fprintln(out, "=====================================")
	fmt.Fprintln(out, "\n📝 Copy this session ID to your config.env file")
	fmt.Fprintln(out, "Replace SESSION_ID=kentech_multibot_sessionid with:")
	fmt.Fprintf(out, "SESSION_ID=%s\n", token)

	if err := os.WriteFile(sessionOut, []byte(token), 0o600); err != nil {
		return errors.Wrapf(err, "write %s", sessionOut)
	}
	fmt.Fprintf(out, "\n💾 Session ID also saved to %s file\n", sessionOut)
	return nil
}
