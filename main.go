package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	channelID    string
	videoArg     string
	maxResults   int
	dryRun       bool
	forceMode    bool
	pruneOrphans bool
	debugMode    bool
	apiKey       string
)

var rootCmd = &cobra.Command{
	Use:   "blog-writer",
	Short: "Auto-generate blog posts from new YouTube uploads",
	Long: `Polls a YouTube channel feed for new uploads, fetches the transcript,
writes a blog article (AI-written when a key is configured, templated
otherwise), publishes the page and registry record, and notifies Slack.
Designed to run hourly from cron: exits 0 when there is nothing new.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(cmd); err != nil {
			log.Printf("✗ Run failed: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&channelID, "channel", "", "YouTube channel ID (starts with UC...)")
	rootCmd.Flags().StringVar(&videoArg, "video", "", "YouTube video ID or URL to process a single video")
	rootCmd.Flags().IntVar(&maxResults, "max-results", 5, "How many latest videos to check")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not write files; just print what would happen")
	rootCmd.Flags().BoolVar(&forceMode, "force", false, "Publish even if the SEO score is below threshold")
	rootCmd.Flags().BoolVar(&pruneOrphans, "prune-orphans", false, "Delete orphaned pages with no registry record instead of failing")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key (defaults to ANTHROPIC_API_KEY)")
}

func run(cmd *cobra.Command) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	if apiKey != "" {
		cfg.Env.AnthropicAPIKey = apiKey
	}
	if channelID == "" {
		channelID = cfg.Env.ChannelID
	}
	if channelID == "" && videoArg == "" {
		return fmt.Errorf("missing channel id: pass --channel UC... or set YOUTUBE_CHANNEL_ID")
	}
	applyFeedWindow(cfg.Settings, cmd.Flags(), maxResults)

	registry := NewRegistry(cfg.Settings.RegistryPath)
	feed := NewFeedReader(nil)
	transcripts := NewTranscriptFetcher(cfg.Settings.TranscriptAPIURL, cfg.Env.TranscriptAPIKey, nil)

	var llm ArticleWriter
	if cfg.Env.AnthropicAPIKey != "" {
		writer, err := NewLLMWriter(cfg.Env.AnthropicAPIKey, cfg)
		if err != nil {
			return err
		}
		llm = writer
	} else {
		log.Printf("no generation API key configured; using templated drafts")
	}

	publisher := NewPublisher(registry, cfg.Settings.PagesDirectory, cfg.GetPostTemplate())
	publisher.SetDryRun(dryRun)

	var notifier runNotifier = NewNotifier(cfg.Env.SlackWebhookURL, nil)
	if dryRun {
		notifier = &dryRunNotifier{}
	}

	pipeline := NewPipeline(cfg, feed, registry, transcripts, llm, NewTemplateWriter(cfg), publisher, notifier)
	pipeline.Force = forceMode
	pipeline.PruneOrphans = pruneOrphans
	if source := transcripts.MetadataSource(); source != nil {
		pipeline.SetMetadataSource(source)
	}

	result, err := pipeline.Run(channelID, videoArg)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case OutcomePublished:
		log.Printf("✓ Done: published %s", result.Post.Slug)
	case OutcomeSkipped:
		log.Printf("Skipped: %s", result.Reason)
	default:
		log.Printf("No new videos to post.")
	}
	return nil
}

// applyFeedWindow layers an explicit --max-results over the settings file.
// The flag's default must not clobber a customized settings.yaml.
func applyFeedWindow(settings *Settings, flags *pflag.FlagSet, value int) {
	if flags.Changed("max-results") && value > 0 {
		settings.FeedMaxResults = value
	}
}

func debugLog(format string, args ...interface{}) {
	if debugMode {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// dryRunNotifier prints the messages a real run would send to Slack.
type dryRunNotifier struct{}

func (d *dryRunNotifier) Notify(text string) {
	log.Printf("[dry-run] Slack message: %s", text)
}

func (d *dryRunNotifier) NotifyNewPost(post *PostRecord, siteBaseURL string) {
	d.Notify(fmt.Sprintf("New blog post created from YouTube upload: *%s*\n%s/blog/%s\nVideo: %s",
		post.Title, siteBaseURL, post.Slug, post.YouTubeURL))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
