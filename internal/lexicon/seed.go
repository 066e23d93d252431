package lexicon

// 内置词典，保证在没有外部资源时仍能转换常用语。
// 外部资源中的同名条目会覆盖这里的值。

// builtinManual 华语 → 台语汉字，由单字层再转为罗马字。
var builtinManual = map[string]string{
	"我們": "阮",
	"你們": "恁",
	"他們": "𪜶",
	"他":  "伊",
	"她":  "伊",
	"它":  "伊",
	"爸爸": "阿爸",
	"媽媽": "阿母",
	"爺爺": "阿公",
	"奶奶": "阿嬤",
	"哥哥": "阿兄",
	"姐姐": "阿姊",
	"吃":  "食",
	"喝":  "飲",
	"說":  "講",
	"走":  "行",
	"睡覺": "睏",
	"睡":  "睏",
	"回":  "轉",
	"沒有": "無",
	"不要": "毋通",
	"漂亮": "媠",
	"什麼": "啥物",
	"這裡": "遮",
	"那裡": "遐",
	"很":  "真",
	"東西": "物件",
	"房子": "厝",
	"謝謝": "多謝",
}

// builtinPhrases 5 字以上的固定说法。
var builtinPhrases = map[string]string{
	"大家好我是機器人": "tak8-ke1 ho2 gua2 si7 ki1-khi3-lang5",
	"今天天氣真好":   "kin1-a2-jit8 thinn1-khi3 tsin1 ho2",
	"你好嗎最近好嗎":  "li2 ho2 bo5 tsue3-kin7 ho2 bo5",
}

// builtinWords 2-4 字常用词。
var builtinWords = map[string]string{
	"你好":  "li2-ho2",
	"大家":  "tak8-ke1",
	"台語":  "tai5-gi2",
	"華語":  "hua5-gi2",
	"英語":  "ing1-gi2",
	"機器人": "ki1-khi3-lang5",
	"電腦":  "tian7-nau2",
	"手機":  "tshiu2-ki1",
	"今天":  "kin1-a2-jit8",
	"明天":  "bin5-a2-jit8",
	"昨天":  "tsa1-hng1",
	"時間":  "si5-kan1",
	"對不起": "pai2-se3",
	"早安":  "gau5-tsa2",
	"晚安":  "an1-tsin2",
	"歡喜":  "huann1-hi2",
	"朋友":  "ping5-iu2",
	"學校":  "hak8-hau7",
	"知影":  "tsai1-iann2",
	"會曉":  "e7-hiau2",
	"台灣":  "tai5-uan5",
	"台北":  "tai5-pak4",
	"台南":  "tai5-lam5",
	"高雄":  "ko1-hiong5",
	"現在":  "hian7-tsai7",
	"等一下": "tan2-tsit8-e7",
	"因為":  "in1-ui7",
	"所以":  "soo2-i2",
	"但是":  "tan7-si7",
}

// builtinCharacters 单字（含台语汉字词）→ 罗马字。
var builtinCharacters = map[string]string{
	"我":  "gua2",
	"你":  "li2",
	"伊":  "i1",
	"咱":  "lan2",
	"恁":  "lin2",
	"阮":  "gun2",
	"𪜶":  "in1",
	"是":  "si7",
	"有":  "u7",
	"無":  "bo5",
	"講":  "kong2",
	"聽":  "thiann1",
	"看":  "khuann3",
	"食":  "tsiah8",
	"飲":  "lim1",
	"行":  "kiann5",
	"坐":  "tse7",
	"睏":  "khun3",
	"轉":  "tng2",
	"會":  "e7",
	"好":  "ho2",
	"歹":  "phainn2",
	"大":  "tua7",
	"細":  "se3",
	"媠":  "sui2",
	"真":  "tsin1",
	"誠":  "tsiann5",
	"足":  "tsiok4",
	"一":  "tsit8",
	"二":  "nng7",
	"三":  "sann1",
	"四":  "si3",
	"五":  "goo7",
	"六":  "lak8",
	"七":  "tshit4",
	"八":  "peh4",
	"九":  "kau2",
	"十":  "tsap8",
	"的":  "e5",
	"人":  "lang5",
	"厝":  "tshu3",
	"遮":  "tsia1",
	"遐":  "hia1",
	"天":  "thinn1",
	"水":  "tsui2",
	"山":  "suann1",
	"來":  "lai5",
	"去":  "khi3",
	"想":  "siunn7",
	"愛":  "ai3",
	"欲":  "beh4",
	"佮":  "kah4",
	"嗎":  "bo5",
	"阿爸": "a1-pa5",
	"阿母": "a1-bu2",
	"阿公": "a1-kong1",
	"阿嬤": "a1-ma2",
	"阿兄": "a1-hiann1",
	"阿姊": "a1-tsi2",
	"毋通": "m7-thang1",
	"啥物": "siann2-mih8",
	"物件": "mih8-kiann7",
	"多謝": "to1-sia7",
}

// DefaultEndings 常见句尾助词，用于 FuseEnding。
var DefaultEndings = []string{"啦", "啊", "喔", "耶", "咧", "囉", "呢", "吧", "矣", "乎"}
