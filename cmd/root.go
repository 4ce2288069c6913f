package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mediastamp",
	Short: "把文件名中的拍摄时间写入媒体文件元数据",
	Long: `MediaStamp 是一个命令行工具，从照片和视频的文件名中识别拍摄时间，
并调用 exiftool 并发写入元数据。

主要功能:
- 按优先级匹配多种文件名时间格式，支持自定义规则文件
- 按 CPU 百分比或指定数量并发调用 exiftool
- 写入失败与无法识别的文件分类统计，可选隔离到独立目录
- 可选写入后回读校验，以及基于 SQLite 的断点续跑记录`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认搜索 $HOME/.mediastamp/config.yaml）")
}
