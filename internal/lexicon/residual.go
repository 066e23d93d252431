package lexicon

import (
	"github.com/mozillazg/go-pinyin"
)

// PinyinResidual 用华语拼音（数字调）近似词典未收录的汉字。
// 读音并非台语，只保证合成时有声音，默认关闭。
type PinyinResidual struct {
	args pinyin.Args
}

// NewPinyinResidual 创建拼音近似器。
func NewPinyinResidual() *PinyinResidual {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone3
	return &PinyinResidual{args: args}
}

// Romanize 实现 Residual 接口。
func (p *PinyinResidual) Romanize(r rune) (string, bool) {
	result := pinyin.Pinyin(string(r), p.args)
	if len(result) == 0 || len(result[0]) == 0 || result[0][0] == "" {
		return "", false
	}
	return result[0][0], true
}
