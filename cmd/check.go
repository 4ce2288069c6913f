package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/moyu-x/mediastamp/app"
	"github.com/moyu-x/mediastamp/config"
	"github.com/moyu-x/mediastamp/tui"
)

var checkCmd = &cobra.Command{
	Use:   "check <directories...>",
	Short: "只识别文件名中的时间，不写入",
	Long: `用当前规则识别目录中所有媒体文件的文件名，展示命中的规则和解析出的时间。
默认打开交互式界面，--plain 时以表格输出。不会修改或移动任何文件。`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}

	opts := app.DefaultCheckOptions()
	opts.Recursive = cfg.Update.Recursive
	opts.Extensions = cfg.Update.Extensions
	opts.Sniff = cfg.Update.Sniff
	opts.PatternFile = cfg.Patterns.File
	opts.Pivot = cfg.Patterns.Pivot
	opts.LogLevel = cfg.Logging.Level
	opts.LogFile = cfg.Logging.File

	flags := cmd.Flags()
	if flags.Changed("recursive") {
		opts.Recursive, _ = flags.GetBool("recursive")
	}
	if flags.Changed("patterns") {
		opts.PatternFile, _ = flags.GetString("patterns")
	}
	if flags.Changed("pivot") {
		opts.Pivot, _ = flags.GetInt("pivot")
	}
	plain, _ := flags.GetBool("plain")

	opts.Directories = app.SplitDirs(args)

	if plain {
		report, err := app.RunCheck(opts)
		if err != nil {
			return err
		}
		return report.WriteTable(os.Stdout)
	}

	// 界面占用终端，不初始化控制台日志
	loader := func(dirs []string) (*app.CheckReport, error) {
		o := *opts
		o.Directories = dirs
		return app.Classify(&o)
	}
	return tui.Run(opts.Directories, loader)
}

func init() {
	f := checkCmd.Flags()
	f.Bool("plain", false, "以表格输出，不启动交互式界面")
	f.BoolP("recursive", "r", false, "递归处理子目录")
	f.String("patterns", "", "自定义文件名规则文件（YAML/JSON）")
	f.Int("pivot", 69, "两位年份的世纪分界")

	rootCmd.AddCommand(checkCmd)
}
