package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iabetor/taigivoice/internal/audio"
)

var (
	listenFile     string
	listenDuration time.Duration
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "识别台语语音",
	Long: `从 WAV 文件或麦克风读取语音并识别。
先请求通用识别服务，置信度低于阈值时改用台语专用识别服务。`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVarP(&listenFile, "file", "f", "", "WAV 文件路径（不指定则使用麦克风）")
	listenCmd.Flags().DurationVarP(&listenDuration, "duration", "d", 5*time.Second, "麦克风录音时长")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	a, err := newApp(appNeeds{stt: true, history: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.router == nil {
		return errors.New("未配置语音识别服务")
	}

	ctx, cancel := signalContext()
	defer cancel()

	var clip *audio.Clip
	if listenFile != "" {
		if clip, err = audio.ReadWAVFile(listenFile); err != nil {
			return err
		}
	} else {
		capture, err := audio.NewCapture(audio.SpeechRate, 512)
		if err != nil {
			return err
		}
		defer capture.Close()
		fmt.Fprintf(cmd.ErrOrStderr(), "录音 %v ...\n", listenDuration)
		if clip, err = capture.Record(ctx, listenDuration); err != nil {
			return fmt.Errorf("录音失败: %w", err)
		}
	}

	res, err := a.router.Recognize(ctx, clip)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "识别结果: %s\n", res.Transcript)
	fmt.Fprintf(out, "来源:     %s\n", res.Route)
	if res.Confidence != nil {
		fmt.Fprintf(out, "置信度:   %.2f\n", *res.Confidence)
	} else {
		fmt.Fprintln(out, "置信度:   N/A")
	}
	return nil
}
