package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/api/option"

	"parlo/audio"
	"parlo/live"
	"parlo/token"
	"parlo/tui"
	"parlo/turns"
	"parlo/vision"
	"parlo/web"
)

var logger *log.Logger

var languagePairs = [][2]string{
	{"en", "English"},
	{"pt", "Portuguese"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"ja", "Japanese"},
	{"zh", "Mandarin"},
	{"ko", "Korean"},
}

var rootCmd = &cobra.Command{
	Use:   "parlo",
	Short: "Realtime bidirectional speech translation",
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run a live translation session",
	RunE:  runSession,
}

var imageCmd = &cobra.Command{
	Use:   "image <path>",
	Short: "Translate text found in an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runImage,
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	Run:   runLanguages,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key (serve only)")
	rootCmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key")
	viper.BindPFlag("openai_api_key", rootCmd.PersistentFlags().Lookup("openai-api-key"))
	viper.BindPFlag("gemini_api_key", rootCmd.PersistentFlags().Lookup("gemini-api-key"))

	sessionCmd.Flags().String("source", "", "Source language code")
	sessionCmd.Flags().String("target", "", "Target language code")
	sessionCmd.Flags().String("voice", "alloy", "Output voice")
	sessionCmd.Flags().String("device", "-", "Capture device: wav file, raw pcm file, or - for stdin")
	sessionCmd.Flags().String("record", "", "Write translated audio to this ogg file")
	sessionCmd.Flags().String("token-url", "http://localhost:8090/v1/realtime/token", "Credential issuer URL")
	sessionCmd.Flags().Bool("websocket", false, "Use the websocket fallback transport")

	imageCmd.Flags().String("target", "en", "Target language")
	imageCmd.Flags().String("source", "", "Source language hint")

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(web.ServeCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(languagesCmd)
}

func initConfig() {
	viper.SetConfigName(".parlo")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("PARLO")
	viper.AutomaticEnv()

	viper.SetDefault("negotiate_url", "https://api.openai.com/v1/realtime")
	viper.SetDefault("websocket_url", "wss://api.openai.com/v1/realtime")
	viper.SetDefault("sessions_url", "https://api.openai.com/v1/realtime/sessions")
	viper.SetDefault("model", "gpt-4o-realtime-preview")
	viper.SetDefault("rate_limit", 10)
	viper.SetDefault("rate_window_seconds", 60)

	if err := viper.ReadInConfig(); err == nil {
		log.Debug("config", "file", viper.ConfigFileUsed())
	}
}

func runSession(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	target, _ := cmd.Flags().GetString("target")
	voice, _ := cmd.Flags().GetString("voice")
	device, _ := cmd.Flags().GetString("device")
	record, _ := cmd.Flags().GetString("record")
	tokenURL, _ := cmd.Flags().GetString("token-url")
	useWS, _ := cmd.Flags().GetBool("websocket")

	if source == "" || target == "" {
		if err := pickLanguages(&source, &target, &voice); err != nil {
			return err
		}
	}

	instructions := fmt.Sprintf(
		"You are a realtime translator. Translate everything you hear from %s into %s. Speak only the translation.",
		source, target,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	cred, err := token.Fetch(ctx, nil, tokenURL, token.Request{
		Instructions: instructions,
		Voice:        voice,
		Modalities:   []string{"text", "audio"},
	})
	cancel()
	if err != nil {
		return fmt.Errorf("obtain credential: %w", err)
	}
	logger.Info("credential", "session", cred.SessionID, "expires", cred.ExpiresAt)

	var sink *audio.Sink
	if record != "" {
		f, err := os.Create(record)
		if err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		defer f.Close()
		sink, err = audio.NewSink(f, logger)
		if err != nil {
			return err
		}
		defer sink.Close()
	}

	client := live.NewClient(live.Options{
		NegotiateURL: viper.GetString("negotiate_url"),
		WebsocketURL: viper.GetString("websocket_url"),
		UseWebsocket: useWS,
		Device:       device,
		Capture:      audio.DefaultOptions(),
		Sink:         sink,
		Direction:    turns.Direction{Source: source, Target: target},
		Voice:        voice,
		Instructions: instructions,
		Logger:       logger,
	})

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer connectCancel()
	if err := client.Connect(connectCtx, cred.ClientSecret); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	client.Configure()
	defer client.Disconnect()

	if err := tui.Run(client); err != nil {
		return fmt.Errorf("session view: %w", err)
	}

	printHistory(client.History())
	return nil
}

func pickLanguages(source, target, voice *string) error {
	options := make([]huh.Option[string], len(languagePairs))
	for i, pair := range languagePairs {
		options[i] = huh.NewOption(pair[1], pair[0])
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Translate from").
				Options(options...).
				Value(source),
			huh.NewSelect[string]().
				Title("Translate into").
				Options(options...).
				Value(target),
			huh.NewSelect[string]().
				Title("Voice").
				Options(huh.NewOptions(
					"alloy", "ash", "ballad", "coral",
					"echo", "sage", "shimmer", "verse",
				)...).
				Value(voice),
		),
	)
	return form.Run()
}

func printHistory(records []turns.Record) {
	if len(records) == 0 {
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Heard", "Translation"})
	for _, rec := range records {
		table.Append([]string{
			rec.CreatedAt.Format("15:04:05"),
			rec.Input,
			rec.Output,
		})
	}
	table.Render()
}

func runImage(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("target")
	source, _ := cmd.Flags().GetString("source")

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	apiKey := viper.GetString("gemini_api_key")
	if apiKey == "" {
		return fmt.Errorf("gemini api key not configured")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return fmt.Errorf("create vision client: %w", err)
	}
	defer client.Close()

	result, err := vision.New(client, logger).Translate(ctx, vision.Request{
		Image:          image,
		TargetLanguage: target,
		SourceLanguage: source,
	})
	if err != nil {
		return err
	}

	md := fmt.Sprintf("# Image translation (%s to %s)\n\n", result.DetectedLanguage, target)
	for _, block := range result.TextBlocks {
		md += fmt.Sprintf("- **%s**: %s\n", block.Original, block.Translation)
	}
	md += fmt.Sprintf("\n%s\n", result.Summary)
	if result.CulturalNote != "" {
		md += fmt.Sprintf("\n> %s\n", result.CulturalNote)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(78),
	)
	if err != nil {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return nil
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}

func runLanguages(cmd *cobra.Command, args []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Code", "Language"})
	for _, pair := range languagePairs {
		table.Append([]string{pair[0], pair[1]})
	}
	table.Render()
}

func main() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	log.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("fatal", "error", err)
	}
}
