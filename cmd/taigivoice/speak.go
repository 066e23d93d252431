package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/tts"
)

var (
	speakOutput string
	speakPlay   bool
)

var speakCmd = &cobra.Command{
	Use:   "speak <文本...>",
	Short: "合成台语语音",
	Long: `把文本转为罗马字后逐段合成并拼接为 WAV。
神经合成失败且配置了 tts.fallback 时改用过程式声调合成，输出中会标明。`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpeak,
}

func init() {
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "", "输出 WAV 文件路径")
	speakCmd.Flags().BoolVar(&speakPlay, "play", false, "直接播放")
	rootCmd.AddCommand(speakCmd)
}

func runSpeak(cmd *cobra.Command, args []string) error {
	if speakOutput == "" && !speakPlay {
		speakOutput = "output.wav"
	}

	a, err := newApp(appNeeds{history: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := a.speech.Speak(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("合成失败: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "罗马字: %s\n", res.Romanized)
	fmt.Fprintf(out, "模式:   %s", res.Mode)
	if res.Mode == tts.ModeTonalFallback {
		fmt.Fprintf(out, "（%s）", res.Reason)
	}
	fmt.Fprintf(out, "\n时长:   %v\n", res.Clip.Duration())

	if speakOutput != "" {
		if err := audio.WriteWAVFile(speakOutput, res.Clip); err != nil {
			return err
		}
		fmt.Fprintf(out, "已保存: %s\n", speakOutput)
	}

	if speakPlay {
		player, err := audio.NewPlayer()
		if err != nil {
			return err
		}
		defer player.Close()
		if err := player.Play(ctx, res.Clip); err != nil {
			return fmt.Errorf("播放失败: %w", err)
		}
	}
	return nil
}
