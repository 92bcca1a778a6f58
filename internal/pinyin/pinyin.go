// Package pinyin 提供中文到拼音的转换，支撑拼音检索字段的派生
package pinyin

import (
	"strings"
	"unicode"

	gopinyin "github.com/mozillazg/go-pinyin"
)

var (
	fullArgs  gopinyin.Args
	firstArgs gopinyin.Args
)

func init() {
	fullArgs = gopinyin.NewArgs()
	// 非汉字字符原样透传，保证审定编号等混合文本不丢失
	fullArgs.Fallback = func(r rune, a gopinyin.Args) []string {
		return []string{string(r)}
	}

	firstArgs = gopinyin.NewArgs()
	firstArgs.Style = gopinyin.FirstLetter
	firstArgs.Fallback = func(r rune, a gopinyin.Args) []string {
		return []string{string(r)}
	}
}

func isHan(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// fullParts 逐字转拼音，连续的非汉字字符合并为一个透传片段，
// "济麦22"产出["ji","mai","22"]而不是把数字拆成两段
func fullParts(s string) []string {
	var parts []string
	var pending []rune
	flush := func() {
		if len(pending) > 0 {
			parts = append(parts, string(pending))
			pending = pending[:0]
		}
	}
	for _, r := range s {
		if isHan(r) {
			flush()
			if py := gopinyin.LazyPinyin(string(r), fullArgs); len(py) > 0 {
				parts = append(parts, py[0])
			}
			continue
		}
		pending = append(pending, r)
	}
	flush()
	return parts
}

// Full 转换为无声调全拼，音节之间以空格分隔
// "水稻" -> "shui dao"，"济麦22" -> "ji mai 22"，空串返回空串
func Full(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(fullParts(s), " ")
}

// FullJoined 转换为无空格的连写全拼，"水稻" -> "shuidao"
func FullJoined(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(fullParts(s), "")
}

// Short 转换为小写首字母缩写，"水稻" -> "sd"，"DK517" -> "dk517"
// 缩写字段按整词前缀匹配，统一小写避免大小写漏检
func Short(s string) string {
	if s == "" {
		return ""
	}
	parts := gopinyin.LazyPinyin(s, firstArgs)
	if len(parts) == 0 {
		return strings.ToLower(s)
	}
	return strings.ToLower(strings.Join(parts, ""))
}

// HanRuns 提取连续两个汉字以上的片段。单字片段的连写形式
// 与全拼重合，不再重复产出
func HanRuns(s string) []string {
	var runs []string
	var pending []rune
	flush := func() {
		if len(pending) >= 2 {
			runs = append(runs, string(pending))
		}
		pending = pending[:0]
	}
	for _, r := range s {
		if isHan(r) {
			pending = append(pending, r)
			continue
		}
		flush()
	}
	flush()
	return runs
}

// Searchable 返回用于索引的拼音文本：空格分隔的全拼，再追加
// 汉字连续段与整串的连写形式，使"huayou"这类连写查询可以命中
func Searchable(s string) string {
	if s == "" {
		return ""
	}
	parts := []string{Full(s)}
	seen := make(map[string]bool)
	for _, run := range HanRuns(s) {
		joined := FullJoined(run)
		if joined != "" && !seen[joined] {
			seen[joined] = true
			parts = append(parts, joined)
		}
	}
	whole := FullJoined(s)
	if whole != "" && !seen[whole] && whole != parts[0] && !strings.ContainsRune(whole, ' ') {
		parts = append(parts, whole)
	}
	return strings.Join(parts, " ")
}
