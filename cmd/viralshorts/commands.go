package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/analyzer"
	"github.com/BaSui01/viralshorts/evaluator"
	"github.com/BaSui01/viralshorts/media/music"
	"github.com/BaSui01/viralshorts/pipeline"
	"github.com/BaSui01/viralshorts/store"
	"github.com/BaSui01/viralshorts/types"
	"github.com/BaSui01/viralshorts/upload"
)

// withApp 在可被 SIGINT/SIGTERM 取消的 context 中装配组件并执行 fn
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.cfg, opts.logger, nil)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// 🎬 generate
// =============================================================================

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var req pipeline.JobRequest

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one or more videos",
		Long: `Runs the full production pipeline synchronously: content, phrases,
B-roll, voiceover, music, render, and optionally upload.

Video types: wyr, scary_facts, money_facts, ai_quotes, kids, random.`,
		Example: `  viralshorts generate --type wyr --count 3
  viralshorts generate --dynamic --upload`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := req.Validate(); err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				events, cancel := a.bus.Subscribe("")
				done := make(chan struct{})
				go func() {
					defer close(done)
					printEvents(cmd.OutOrStdout(), events)
				}()

				job, runErr := a.runner.Run(ctx, req)
				cancel()
				<-done

				if job == nil {
					return runErr
				}
				videos, err := a.store.ListVideos(ctx, store.VideoFilter{JobID: job.ID})
				if err != nil {
					opts.logger.Warn("failed to list job videos", zap.Error(err))
				}
				printSummary(cmd.OutOrStdout(), job, videos)
				return runErr
			})
		},
	}

	cmd.Flags().StringVar(&req.Type, "type", "random", "Video type")
	cmd.Flags().IntVar(&req.Count, "count", 1, fmt.Sprintf("Number of videos (1-%d)", pipeline.MaxCount))
	cmd.Flags().BoolVar(&req.Upload, "upload", false, "Upload finished videos to Dailymotion")
	cmd.Flags().BoolVar(&req.Dynamic, "dynamic", false, "Use topic-driven generation with per-phrase B-roll")
	return cmd
}

func printEvents(w io.Writer, events <-chan pipeline.Event) {
	for ev := range events {
		switch ev.Type {
		case pipeline.EventStage:
			fmt.Fprintf(w, "  · %s %s\n", ev.Stage, ev.Message)
		case pipeline.EventVideoDone:
			fmt.Fprintf(w, "✔ video %s %s\n", ev.VideoID, ev.Message)
		case pipeline.EventVideoFailed, pipeline.EventVideoRejected, pipeline.EventEnhancer:
			fmt.Fprintf(w, "✘ %s: %s\n", ev.Type, ev.Message)
		}
	}
}

func printSummary(w io.Writer, job *store.Job, videos []store.Video) {
	fmt.Fprintf(w, "\njob %s %s (%d/%d videos)\n", job.ID, job.Status, len(videos), job.Count)
	for _, v := range videos {
		line := fmt.Sprintf("  %s  %-12s %s", v.ID[:min(8, len(v.ID))], v.Category, v.FilePath)
		if v.PlatformURL != "" {
			line += "  " + v.PlatformURL
		}
		fmt.Fprintln(w, line)
	}
	if job.Error != "" {
		fmt.Fprintf(w, "error: %s\n", job.Error)
	}
}

// =============================================================================
// 🧪 evaluate
// =============================================================================

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var (
		file  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score would-you-rather questions with the AI evaluator",
		Example: `  viralshorts evaluate --file questions.json --limit 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			questions, err := evaluator.LoadQuestions(file)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if a.caller == nil {
					return types.NewNotConfiguredError("evaluator", "llm api key")
				}
				return printJSON(cmd.OutOrStdout(), a.evaluator.BatchEvaluate(ctx, questions, limit))
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file with [{option_a, option_b}]")
	cmd.Flags().IntVar(&limit, "limit", evaluator.DefaultBatchLimit, "Maximum questions to score")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// =============================================================================
// 📈 analyze
// =============================================================================

// analyzeReport analyze 命令的输出
type analyzeReport struct {
	Channels []*analyzer.ChannelInsight `json:"channels"`
	OurBest  analyzer.OurBest           `json:"our_best"`
	Boost    string                     `json:"prompt_boost"`
}

// statsRefreshLimit 每次 analyze 回填统计的最近上传数
const statsRefreshLimit = 50

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var channels []string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Learn viral patterns from successful channels and our own best videos",
		Example: `  viralshorts analyze
  viralshorts analyze --channel UCxxxxxxxx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				ids := channels
				if len(ids) == 0 {
					ids = a.cfg.YouTube.Channels
				}

				report := analyzeReport{Channels: []*analyzer.ChannelInsight{}}
				for _, id := range ids {
					insight, err := a.analyzer.AnalyzeChannel(ctx, id)
					switch {
					case errors.Is(err, analyzer.ErrChannelTooSmall), errors.Is(err, analyzer.ErrNoShorts):
						fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", id, err)
						continue
					case err != nil:
						return fmt.Errorf("analyze %s: %w", id, err)
					}
					report.Channels = append(report.Channels, insight)
				}

				if a.uploader != nil {
					if _, err := a.uploader.RefreshStats(ctx, a.store, statsRefreshLimit); err != nil {
						opts.logger.Warn("failed to refresh upload stats", zap.Error(err))
					}
				}

				top, err := a.store.TopPerforming(ctx, 20)
				if err != nil {
					return err
				}
				report.OurBest = analyzer.LearnFromOurBest(performances(top))

				if err := a.analyzer.Refresh(ctx); err != nil {
					opts.logger.Warn("failed to reload learned patterns", zap.Error(err))
				}
				report.Boost = a.analyzer.PromptBoost()
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().StringSliceVar(&channels, "channel", nil, "YouTube channel ID (repeatable; defaults to youtube.channels)")
	return cmd
}

func performances(videos []store.Video) []analyzer.Performance {
	out := make([]analyzer.Performance, 0, len(videos))
	for _, v := range videos {
		out = append(out, analyzer.Performance{
			Category: v.Category,
			Hook:     v.Hook,
			Views:    v.Views,
			Likes:    v.Likes,
			Duration: v.DurationSeconds,
		})
	}
	return out
}

// =============================================================================
// 🎵 music
// =============================================================================

func newMusicCmd(opts *rootOptions) *cobra.Command {
	var mood string

	cmd := &cobra.Command{
		Use:   "music",
		Short: "Fetch a background track for a mood",
		Long:  "Moods: fun, dramatic, mysterious, energetic, chill, default.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				path, err := a.music.Get(ctx, music.Mood(strings.ToLower(mood)))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mood, "mood", string(music.MoodDefault), "Music mood")
	return cmd
}

// =============================================================================
// 📤 upload
// =============================================================================

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var (
		file string
		meta upload.Metadata
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload an existing video to Dailymotion",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(file); err != nil {
				return types.NewError(types.ErrAssetMissing, "video file not found").WithCause(err)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if a.uploader == nil {
					return types.NewNotConfiguredError("dailymotion", "api_key", "api_secret", "username", "password")
				}
				if meta.Channel == "" {
					meta.Channel = a.cfg.Dailymotion.Channel
				}
				video, err := a.uploader.Upload(ctx, file, meta)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s %s\n", video.ID, video.URL)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the mp4")
	cmd.Flags().StringVar(&meta.Title, "title", "", "Video title")
	cmd.Flags().StringVar(&meta.Description, "description", "", "Video description")
	cmd.Flags().StringSliceVar(&meta.Tags, "tags", nil, "Comma separated tags")
	cmd.Flags().StringVar(&meta.Channel, "channel", "", "Dailymotion channel (defaults to config)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// =============================================================================
// 📋 version / health
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ViralShorts %s\n", Version)
			fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
		},
	}
}

func newHealthCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:         "health",
		Short:       "Check a running server",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(strings.TrimRight(addr, "/") + "/health")
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health check failed: status %d", resp.StatusCode)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "Server address")
	return cmd
}
