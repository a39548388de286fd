package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score a single URL, email or QR image",
}

var scanURLCmd = &cobra.Command{
	Use:   "url <url>",
	Short: "Score a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initScanEnv(ctx, "scan")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ScanURL(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "scan url")
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var scanEmailCmd = &cobra.Command{
	Use:   "email",
	Short: "Score email text read from --file or stdin",
	Long:  "Scores email text. Plain text and raw RFC 822 messages (.eml) are both accepted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("file")
		text, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}

		env, err := initScanEnv(ctx, "scan")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ScanEmail(ctx, string(text))
		if err != nil {
			return eris.Wrap(err, "scan email")
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var scanQRCmd = &cobra.Command{
	Use:   "qr",
	Short: "Decode a QR image and score the URL it leads to",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrap(err, "read image")
		}

		env, err := initScanEnv(ctx, "scan")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ScanQR(ctx, data)
		if err != nil {
			return eris.Wrap(err, "scan qr")
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	scanEmailCmd.Flags().String("file", "", "read the email from this file instead of stdin")
	scanQRCmd.Flags().String("file", "", "QR image (PNG, JPEG or GIF)")
	_ = scanQRCmd.MarkFlagRequired("file")

	scanCmd.AddCommand(scanURLCmd)
	scanCmd.AddCommand(scanEmailCmd)
	scanCmd.AddCommand(scanQRCmd)
	rootCmd.AddCommand(scanCmd)
}

// readInput returns the contents of path, or all of stdin when path is empty.
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" {
		b, err := io.ReadAll(stdin)
		return b, eris.Wrap(err, "read stdin")
	}
	b, err := os.ReadFile(path)
	return b, eris.Wrapf(err, "read %s", path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
