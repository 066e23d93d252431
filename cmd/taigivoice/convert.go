package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iabetor/taigivoice/internal/segment"
)

var convertSentences bool

var convertCmd = &cobra.Command{
	Use:   "convert [文本...]",
	Short: "把中文文本转为数字调罗马字",
	Long: `把中文文本转为台语数字调罗马字。
不带参数时逐行读取标准输入。`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().BoolVar(&convertSentences, "sentences", false, "按句子拆分后逐句输出")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	a, err := newApp(appNeeds{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	convert := func(text string) {
		parts := []string{text}
		if convertSentences {
			parts = segment.SplitSentences(text)
		}
		for _, p := range parts {
			romanized, err := a.speech.Romanize(ctx, p)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p, err)
				continue
			}
			fmt.Fprintln(out, romanized)
		}
	}

	if len(args) > 0 {
		convert(strings.Join(args, " "))
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			convert(line)
		}
	}
	return scanner.Err()
}
