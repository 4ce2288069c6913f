package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moyu-x/mediastamp/app"
	"github.com/moyu-x/mediastamp/config"
)

var updateCmd = &cobra.Command{
	Use:   "update <directories...>",
	Short: "把文件名中的时间写入元数据",
	Long: `扫描指定目录中的媒体文件，按规则从文件名识别拍摄时间，
并发调用 exiftool 写入 DateTimeOriginal 等时间字段。
目录也可以用逗号分隔。单个文件失败只计入统计，不影响退出码。`,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}

	opts := updateOptionsFromConfig(cfg)
	applyUpdateFlags(cmd, opts)

	extra, _ := cmd.Flags().GetStringSlice("directory")
	opts.Directories = append(append([]string{}, args...), extra...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = app.RunUpdate(ctx, opts)
	return err
}

func updateOptionsFromConfig(cfg *config.Config) *app.UpdateOptions {
	opts := app.DefaultUpdateOptions()
	opts.Workers = cfg.Update.Workers
	opts.Jobs = cfg.Update.Jobs
	opts.Recursive = cfg.Update.Recursive
	opts.Extensions = cfg.Update.Extensions
	opts.Sniff = cfg.Update.Sniff
	opts.Verify = cfg.Update.Verify
	opts.DryRun = cfg.Update.DryRun
	opts.Quarantine = cfg.Update.Quarantine
	opts.ToolPath = cfg.Tool.Path
	opts.PatternFile = cfg.Patterns.File
	opts.Pivot = cfg.Patterns.Pivot
	opts.JournalPath = cfg.Journal.Path
	opts.Resume = cfg.Journal.Resume
	opts.LogLevel = cfg.Logging.Level
	opts.LogFile = cfg.Logging.File
	return opts
}

// applyUpdateFlags 只有显式指定的参数覆盖配置
func applyUpdateFlags(cmd *cobra.Command, opts *app.UpdateOptions) {
	flags := cmd.Flags()

	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("workers") {
		opts.Workers, _ = flags.GetString("workers")
	}
	if flags.Changed("jobs") {
		opts.Jobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("recursive") {
		opts.Recursive, _ = flags.GetBool("recursive")
	}
	if flags.Changed("ext") {
		opts.Extensions, _ = flags.GetStringSlice("ext")
	}
	if flags.Changed("sniff") {
		opts.Sniff, _ = flags.GetBool("sniff")
	}
	if flags.Changed("tool") {
		opts.ToolPath, _ = flags.GetString("tool")
	}
	if flags.Changed("dry-run") {
		opts.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("verify") {
		opts.Verify, _ = flags.GetBool("verify")
	}
	if flags.Changed("patterns") {
		opts.PatternFile, _ = flags.GetString("patterns")
	}
	if flags.Changed("pivot") {
		opts.Pivot, _ = flags.GetInt("pivot")
	}
	if flags.Changed("journal") {
		opts.JournalPath, _ = flags.GetString("journal")
	}
	if flags.Changed("resume") {
		opts.Resume, _ = flags.GetBool("resume")
	}
	if flags.Changed("quarantine") {
		opts.Quarantine, _ = flags.GetString("quarantine")
	}
	if flags.Changed("log-level") {
		opts.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-file") {
		opts.LogFile, _ = flags.GetString("log-file")
	}
}

func init() {
	f := updateCmd.Flags()
	f.StringSliceP("directory", "d", nil, "要处理的目录，可重复或逗号分隔")
	f.BoolP("verbose", "v", false, "每个文件输出一行详细结果，不显示进度条")
	f.StringP("workers", "w", "80", "使用的 CPU 百分比，或 all 使用全部核心")
	f.IntP("jobs", "j", 0, "显式指定 worker 数量，优先于 --workers")
	f.BoolP("recursive", "r", false, "递归处理子目录")
	f.StringSlice("ext", nil, "处理的扩展名（默认: jpg,jpeg,png,heic,mp4,mov）")
	f.Bool("sniff", false, "按文件头判断媒体类型，忽略扩展名")
	f.String("tool", "exiftool", "exiftool 可执行文件路径")
	f.Bool("dry-run", false, "只识别不写入")
	f.Bool("verify", false, "写入后回读元数据校验（JPEG/MP4）")
	f.String("patterns", "", "自定义文件名规则文件（YAML/JSON）")
	f.Int("pivot", 69, "两位年份的世纪分界")
	f.String("journal", "", "运行记录数据库路径（SQLite）")
	f.Bool("resume", false, "跳过上次已写入且未变化的文件，需要 --journal")
	f.String("quarantine", "", "把写入失败和无法识别的文件移动到该目录")
	f.String("log-level", "info", "日志级别 (trace, debug, info, warn, error)")
	f.String("log-file", "", "日志文件路径")

	rootCmd.AddCommand(updateCmd)
}
