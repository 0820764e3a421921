package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tunetalk/tunetalk/internal/ai"
	"github.com/tunetalk/tunetalk/internal/extract"
	"github.com/tunetalk/tunetalk/internal/prompt"
	"github.com/tunetalk/tunetalk/internal/request"
)

var parseCompare bool

func init() {
	parseCmd := &cobra.Command{
		Use:   "parse <description>",
		Short: "Show the playlist request the model extracts from a description",
		Long: `Send a single description through the extraction prompt and print the
playlist request the model returns. No Spotify account is needed.

Use this to check your model API key and to see how a description is read.
--compare also shows what the offline keyword parser makes of it.

Examples:
  tunetalk parse energetic workout music with 90s hip-hop
  tunetalk parse melancholic indie with dreamy reverb --compare`,
		Args: cobra.MinimumNArgs(1),
		RunE: runParse,
	}
	parseCmd.Flags().BoolVar(&parseCompare, "compare", false, "also show the keyword parser's result")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	con := newConsole(cmd)
	text := strings.Join(args, " ")

	if err := cfg.RequireModel(); err != nil {
		con.Error(fmt.Sprintf("❌ No API key for provider %q. Run 'tunetalk setup' first.", cfg.Provider))
		return err
	}

	gen, err := ai.NewGenerator(cmd.Context(), cfg.Generator())
	if err != nil {
		return err
	}
	gen = ai.WithTimeout(gen, cfg.RequestTimeout)

	con.Info(fmt.Sprintf("🤖 Asking %s about: %q", gen.Name(), text))
	start := time.Now()
	raw, err := gen.Generate(cmd.Context(), prompt.BuildExtractionPrompt(text))
	took := time.Since(start).Round(time.Millisecond)
	if err != nil {
		con.Error(fmt.Sprintf("❌ Model request failed after %v: %v", took, err))
		return err
	}
	logrus.WithField("raw", raw).Debug("model response")

	req, err := extract.Parse(raw)
	if err != nil {
		con.Warn(fmt.Sprintf("⚠️  %s (after %v)", describeExtractionError(err), took))
		con.Muted(raw)
	} else {
		con.Success(fmt.Sprintf("✅ Extracted in %v", took))
		printRequest(con, "Model", req)
	}

	if parseCompare {
		printRequest(con, "Keywords", ai.HeuristicRequest(text))
	}
	return err
}

func describeExtractionError(err error) string {
	var malformed *extract.MalformedJSONError
	switch {
	case errors.Is(err, extract.ErrNoJSONStructure):
		return "The reply contained no JSON object"
	case errors.As(err, &malformed):
		return "The reply contained malformed JSON"
	case errors.Is(err, request.ErrSchemaViolation):
		return "The reply did not match the request schema: " + err.Error()
	default:
		return err.Error()
	}
}

type printer interface {
	Info(msg string)
}

func printRequest(out printer, label string, req request.PlaylistRequest) {
	out.Info(fmt.Sprintf("   %s result:", label))
	for _, line := range strings.Split(req.Summary(), "\n") {
		out.Info("     " + line)
	}
}
