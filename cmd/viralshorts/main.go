// =============================================================================
// ViralShorts 主入口
// =============================================================================
// 短视频自动生产的 CLI 与 HTTP 服务
//
// 使用方法:
//
//	viralshorts generate --type wyr --count 3    # 生成视频
//	viralshorts generate --type random --upload  # 生成并上传
//	viralshorts evaluate --file questions.json   # AI 评估问题
//	viralshorts analyze --channel UCxxxx         # 分析病毒频道
//	viralshorts music --mood dramatic            # 获取背景音乐
//	viralshorts upload --file out.mp4 --title t  # 上传已有视频
//	viralshorts serve --config config.yaml       # 启动 API 服务
//	viralshorts migrate up                       # 运行数据库迁移
//	viralshorts version                          # 显示版本信息
//	viralshorts health                           # 健康检查
// =============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// skipConfig 标记不需要加载配置的命令
const skipConfig = "skip-config"

// rootOptions 所有子命令共享的状态，在 PersistentPreRunE 中填充
type rootOptions struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func (o *rootOptions) load() error {
	loader := config.NewLoader()
	if o.configPath != "" {
		loader = loader.WithConfigPath(o.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	o.cfg = cfg
	o.logger = initLogger(cfg.Log)
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "viralshorts",
		Short: "Autonomous viral short-form video factory",
		Long: `ViralShorts writes, voices, renders and publishes vertical short videos.

Content comes from an LLM fallback chain, narration from a TTS chain, footage
from Pexels/Pixabay, music from Jamendo/Pixabay, and the final cut from ffmpeg.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := cmd.Annotations[skipConfig]; ok {
				return nil
			}
			return opts.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (YAML)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	root.AddCommand(
		newGenerateCmd(opts),
		newEvaluateCmd(opts),
		newAnalyzeCmd(opts),
		newMusicCmd(opts),
		newUploadCmd(opts),
		newServeCmd(opts),
		newMigrateCmd(opts),
		newVersionCmd(),
		newHealthCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
