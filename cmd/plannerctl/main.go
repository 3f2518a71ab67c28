// Package main 提供周计划的终端客户端。
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/flyswxf/calendar/config"
	"github.com/flyswxf/calendar/internal/calendar"
	"github.com/flyswxf/calendar/internal/timer"
	"github.com/flyswxf/calendar/internal/tui"
)

var (
	configPath string

	weekFile     string
	weekDate     string
	weekViewport int

	focusMode    string
	focusMinutes int
	focusTitle   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "plannerctl",
		Short:        "周计划终端客户端：周视图与专注计时",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径（默认读取 ./config.yaml）")

	rootCmd.AddCommand(newWeekCmd())
	rootCmd.AddCommand(newFocusCmd())
	return rootCmd
}

func newWeekCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "week",
		Short: "渲染快照文件中某一周的课程与专注记录",
		RunE:  runWeekCmd,
	}
	cmd.Flags().StringVar(&weekFile, "file", "", "快照文件（/api/data 的 JSON）")
	cmd.Flags().StringVar(&weekDate, "date", "", "目标日期 YYYY-MM-DD，默认今天")
	cmd.Flags().IntVar(&weekViewport, "viewport", 0, "按此视口宽度计算像素比例")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runWeekCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	loc, err := cfg.Planner.Location()
	if err != nil {
		return fmt.Errorf("时区无效: %w", err)
	}
	termStart, err := cfg.Planner.TermStartDate()
	if err != nil {
		return err
	}

	now := time.Now().In(loc)
	anchor := now
	if weekDate != "" {
		anchor, err = time.ParseInLocation("2006-01-02", weekDate, loc)
		if err != nil {
			return errors.New("--date 格式应为 YYYY-MM-DD")
		}
	}

	f, err := os.Open(weekFile)
	if err != nil {
		return fmt.Errorf("打开快照失败: %w", err)
	}
	defer f.Close()

	courses, records, skipped, err := tui.LoadSnapshot(f)
	if err != nil {
		return err
	}
	if skipped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "已跳过 %d 条无效数据\n", skipped)
	}

	view := calendar.BuildWeek(calendar.NewTerm(termStart), anchor, courses, records,
		calendar.PixelsPerMinute(weekViewport), now)
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderWeek(view))
	return nil
}

func newFocusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "运行专注计时器，结束后以 JSON 输出会话记录",
		RunE:  runFocusCmd,
	}
	cmd.Flags().StringVar(&focusMode, "mode", string(timer.ModeCountdown), "计时模式：countdown 或 stopwatch")
	cmd.Flags().IntVar(&focusMinutes, "minutes", timer.DefaultCountdownMinutes, "倒计时分钟数（1-600）")
	cmd.Flags().StringVar(&focusTitle, "title", timer.DefaultTitle, "专注标题")
	return cmd
}

func runFocusCmd(cmd *cobra.Command, _ []string) error {
	mode := timer.Mode(focusMode)
	if !mode.Valid() {
		return fmt.Errorf("--mode 应为 countdown 或 stopwatch，实际 %q", focusMode)
	}

	final, err := tea.NewProgram(tui.NewFocusModel(mode, focusMinutes, focusTitle)).Run()
	if err != nil {
		return fmt.Errorf("计时器异常退出: %w", err)
	}

	records := final.(tui.FocusModel).Records()
	if len(records) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "未开始计时，没有生成记录")
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
